// Package cli provides the interactive Image Studio command-line client.
//
// It wires configuration, the local database, the gRPC client, the HTTP
// generation service and the edit session, then runs a REPL. Typical flow:
// upload an image, pick a mode, submit a prompt, save the result. Logging
// in binds completed edits to the user's history.
//
// A background watcher pings the server and switches between online and
// offline mode. See App, StartOnlineStatusWatcher and runREPL.
package cli
