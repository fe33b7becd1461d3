package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/common"
)

var errNotLoggedIn = errors.New("not logged in")

const promptPreviewLen = 40

func (a *App) userID() (string, error) {
	id := a.ids.Current()
	if id == nil {
		a.printf("Log in to use your history\n")
		return "", errNotLoggedIn
	}
	return id.UserID, nil
}

// History lists the user's history, newest first, optionally filtered by a
// case-insensitive prompt search.
func (a *App) History(ctx context.Context, args []string) error {
	uid, err := a.userID()
	if err != nil {
		return err
	}

	var entries []models.HistoryEntry
	term := strings.Join(args, " ")
	if term == "" {
		entries, err = a.history.List(ctx, uid)
	} else {
		entries, err = a.history.Search(ctx, uid, term)
	}
	if err != nil {
		a.printf("Cannot load history: %v\n", err)
		return err
	}

	if len(entries) == 0 {
		if term == "" {
			a.printf("History is empty\n")
		} else {
			a.printf("Nothing matches %q\n", term)
		}
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tFEATURE\tPROMPT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Feature, preview(e.Prompt))
	}
	return w.Flush()
}

// Delete removes one history entry.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printf("Usage: delete <id>\n")
		return errUsage
	}
	uid, err := a.userID()
	if err != nil {
		return err
	}

	if err := a.history.Delete(ctx, uid, args[0]); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.printf("No history entry %s\n", args[0])
		} else {
			a.printf("Delete failed: %v\n", err)
		}
		return err
	}
	a.printf("Deleted %s\n", args[0])
	return nil
}

// Download saves a history entry's result like "save" does for the
// current edit.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printf("Usage: download <id> [dir]\n")
		return errUsage
	}
	uid, err := a.userID()
	if err != nil {
		return err
	}

	e, err := a.history.Get(ctx, uid, args[0])
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.printf("No history entry %s\n", args[0])
		} else {
			a.printf("Cannot load entry: %v\n", err)
		}
		return err
	}

	path, err := saveImage(a.downloadDir(args[1:]), *e)
	if err != nil {
		a.printf("Save failed: %v\n", err)
		return err
	}
	a.printf("Saved to %s\n", path)
	return nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > promptPreviewLen {
		return string(r[:promptPreviewLen-1]) + "…"
	}
	return s
}
