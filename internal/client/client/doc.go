// Package client talks to the Studio backend.
//
// GRPCClient implements Client over the hand-declared imagestudio.v1.Studio
// service. An interceptor attaches the access token to every call and
// transparently refreshes an expired token once. gRPC status codes are
// mapped to sentinels (ErrUnauthorized, ErrUnavailable, ErrAlreadyExists,
// common.ErrorNotFound, common.ErrVersionConflict) so callers can use
// errors.Is. GRPCClient also satisfies history.Store.
//
// InitDatabase and RunMigrations bootstrap the local SQLite file used when
// history is kept on the machine instead of the server.
package client
