package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/imagedata"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
	"github.com/dmitrijs2005/imagestudio/internal/server/providers"
)

// GenerateService validates a generation request per feature and forwards
// it to the image provider.
type GenerateService struct {
	provider providers.ImageProvider
	log      logging.Logger
}

func NewGenerateService(p providers.ImageProvider, log logging.Logger) *GenerateService {
	return &GenerateService{provider: p, log: log.With("module", "generate")}
}

// Generate returns the produced image as a data URL. Invalid input is
// common.ErrorValidation; provider failures are passed through.
func (s *GenerateService) Generate(ctx context.Context, f feature.Feature, prompt, image string) (string, error) {
	if err := f.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		if !f.AllowsEmptyPrompt() {
			return "", fmt.Errorf("%w: prompt is required", common.ErrorValidation)
		}
		prompt = feature.DefaultRestorePrompt
	}

	var src *imagedata.Payload
	if f.RequiresImage() {
		p, err := imagedata.Parse(image)
		if err != nil {
			return "", fmt.Errorf("%w: image: %v", common.ErrorValidation, err)
		}
		src = &p
	}

	started := time.Now()
	out, err := s.provider.GenerateImage(ctx, prompt, src)
	if err != nil {
		s.log.Warn(ctx, "generation failed", "feature", f, "error", err, "elapsed", time.Since(started))
		return "", err
	}

	s.log.Info(ctx, "generation finished", "feature", f, "mime", out.MIME, "elapsed", time.Since(started))
	return out.DataURL(), nil
}
