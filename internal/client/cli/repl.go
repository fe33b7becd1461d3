package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/imagestudio/internal/feature"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	SetFeature(args []string) error
	Submit(ctx context.Context, f feature.Feature, args []string) error
	Show(ctx context.Context) error
	Save(ctx context.Context, args []string) error
	Clear(ctx context.Context) error
	History(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
}

const (
	helpEditing = "Editing: upload <path>, mode [edit|generate|restore], submit [prompt], " +
		"edit <prompt>, generate <prompt>, restore [prompt], show, save [dir], clear"
	helpGuest  = "Account: register, login, help, exit"
	helpMember = "Account: whoami, logout, help, exit\nHistory: history [term], download <id> [dir], delete <id>"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The prompt shows statusFn(). The loop exits on EOF or "exit"/"quit".
//
// Errors from command handlers are not printed here; handlers report to
// the user themselves and the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("studio %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpEditing)
			if a.isLoggedIn() {
				printlnFn(helpMember)
			} else {
				printlnFn(helpGuest)
			}

		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)

		case "upload":
			_ = a.Upload(ctx, args)
		case "mode":
			_ = a.SetFeature(args)
		case "submit":
			_ = a.Submit(ctx, "", args)
		case string(feature.Edit), string(feature.Generate), string(feature.Restore):
			_ = a.Submit(ctx, feature.Feature(cmd), args)
		case "show":
			_ = a.Show(ctx)
		case "save":
			_ = a.Save(ctx, args)
		case "clear":
			_ = a.Clear(ctx)

		case "history":
			_ = a.History(ctx, args)
		case "delete":
			_ = a.Delete(ctx, args)
		case "download":
			_ = a.Download(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
