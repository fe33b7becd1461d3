package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/imagedata"
)

var errUsage = errors.New("usage")

// Upload loads an image file and starts a fresh edit with it.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printf("Usage: upload <path>\n")
		return errUsage
	}

	path := strings.Join(args, " ")
	p, err := imagedata.ReadFile(path)
	if err != nil {
		a.printf("Cannot load %s: %v\n", path, err)
		return err
	}

	if _, err := a.session.UploadImage(p.DataURL()); err != nil {
		return err
	}
	a.printf("Loaded %s (%s)\n", path, p.MIME)
	return nil
}

// SetFeature picks the feature used by a bare "submit".
func (a *App) SetFeature(args []string) error {
	if len(args) == 0 {
		a.printf("Mode: %s (available: %s)\n", a.feature.Label(), featureList())
		return nil
	}

	f, err := feature.Parse(args[0])
	if err != nil {
		a.printf("Unknown mode %q (available: %s)\n", args[0], featureList())
		return err
	}
	a.feature = f
	a.printf("Mode: %s\n", f.Label())
	return nil
}

// Submit sends the prompt for f, or for the selected feature when f is
// empty. A bare "submit" reads a multi-line prompt; a bare "restore" uses
// the default restoration prompt. The outcome is reported by the presenter.
func (a *App) Submit(ctx context.Context, f feature.Feature, args []string) error {
	if f == "" {
		f = a.feature
	}

	prompt := strings.Join(args, " ")
	if prompt == "" && !f.AllowsEmptyPrompt() {
		var err error
		prompt, err = GetMultiline(a.reader, "Describe the "+strings.ToLower(f.Label())+":", a.out)
		if err != nil {
			return err
		}
	}

	e, err := a.session.Submit(ctx, prompt, f)
	if err != nil {
		return err
	}
	if e.Status == models.StatusCompleted {
		a.printf("Result ready. Use 'save' to download it.\n")
	}
	return nil
}

// Show prints the current edit.
func (a *App) Show(ctx context.Context) error {
	e := a.session.Current()
	if e == nil {
		a.printf("No current edit. Use 'upload <path>' or 'generate <prompt>'.\n")
		return nil
	}

	a.printf("ID:       %s\n", e.ID)
	a.printf("Feature:  %s\n", e.Feature.Label())
	a.printf("Status:   %s\n", e.Status)
	if e.Prompt != "" {
		a.printf("Prompt:   %s\n", e.Prompt)
	}
	a.printf("Source:   %s\n", describeImage(e.SourceImage))
	a.printf("Result:   %s\n", describeImage(e.ResultImage))
	a.printf("Created:  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// Clear drops the current edit. History is not touched.
func (a *App) Clear(ctx context.Context) error {
	a.session.Clear()
	return nil
}

// Save writes the current result into args[0] or the download directory.
func (a *App) Save(ctx context.Context, args []string) error {
	e := a.session.Current()
	if e == nil || e.Status != models.StatusCompleted {
		a.printf("Nothing to save yet\n")
		return errNothingToSave
	}

	path, err := saveImage(a.downloadDir(args), e.HistoryEntry())
	if err != nil {
		a.printf("Save failed: %v\n", err)
		return err
	}
	a.printf("Saved to %s\n", path)
	return nil
}

func (a *App) downloadDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.config.DownloadDir
}

func describeImage(s string) string {
	if s == "" {
		return "-"
	}
	p, err := imagedata.Parse(s)
	if err != nil {
		return "unreadable"
	}
	b, err := p.Bytes()
	if err != nil {
		return p.MIME
	}
	return p.MIME + ", " + humanSize(len(b))
}

func featureList() string {
	names := make([]string, 0, len(feature.All()))
	for _, f := range feature.All() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
