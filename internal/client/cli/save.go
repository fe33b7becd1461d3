package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/filex"
	"github.com/dmitrijs2005/imagestudio/internal/imagedata"
)

var errNothingToSave = errors.New("nothing to save")

const promptSlugLen = 20

// sidecar is the YAML metadata written next to a saved image.
type sidecar struct {
	ID        string    `yaml:"id"`
	Feature   string    `yaml:"feature"`
	Prompt    string    `yaml:"prompt"`
	MIME      string    `yaml:"mime"`
	CreatedAt time.Time `yaml:"created_at"`
	SavedAt   time.Time `yaml:"saved_at"`
}

var now = time.Now

// downloadName builds "edited-<first 20 prompt chars>" with whitespace runs
// turned into '-'. Path separators are replaced as well.
func downloadName(prompt string) string {
	r := []rune(prompt)
	if len(r) > promptSlugLen {
		r = r[:promptSlugLen]
	}

	var b strings.Builder
	b.WriteString("edited-")
	inSpace := false
	for _, c := range r {
		switch {
		case unicode.IsSpace(c):
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		case c == '/' || c == '\\' || c == 0:
			b.WriteByte('-')
		default:
			b.WriteRune(c)
		}
		inSpace = false
	}
	return b.String()
}

// saveImage decodes e's result into dir and writes a YAML sidecar with the
// same base name. Returns the image path.
func saveImage(dir string, e models.HistoryEntry) (string, error) {
	if e.ResultImage == "" {
		return "", errNothingToSave
	}

	p, err := imagedata.Parse(e.ResultImage)
	if err != nil {
		return "", err
	}
	data, err := p.Bytes()
	if err != nil {
		return "", err
	}

	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}

	base := downloadName(e.Prompt)
	path := filepath.Join(dir, base+p.Extension())
	if err := filex.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}

	meta, err := yaml.Marshal(sidecar{
		ID:        e.ID,
		Feature:   string(e.Feature),
		Prompt:    e.Prompt,
		MIME:      p.MIME,
		CreatedAt: e.CreatedAt.UTC(),
		SavedAt:   now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := filex.WriteFileAtomic(filepath.Join(dir, base+".yaml"), meta, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func humanSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
