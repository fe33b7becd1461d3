package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/genapi"
	"github.com/dmitrijs2005/imagestudio/internal/server/providers"
)

// Generate handles POST /api/generate/{feature}.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	f, err := feature.Parse(chi.URLParam(r, "feature"))
	if err != nil {
		a.error(w, http.StatusNotFound, "unknown feature", err.Error())
		return
	}

	if a.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
	}

	var req genapi.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, genapi.ErrTextInvalidBody, "body too large")
			return
		}
		a.error(w, http.StatusBadRequest, genapi.ErrTextInvalidBody, err.Error())
		return
	}

	result, err := a.gen.Generate(r.Context(), f, req.Prompt, req.Image)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			a.error(w, http.StatusBadRequest, "invalid request", err.Error())
		case errors.Is(err, providers.ErrQuotaExceeded):
			a.error(w, http.StatusTooManyRequests, genapi.ErrTextQuotaExceeded, "")
		case errors.Is(err, providers.ErrNoImage):
			a.error(w, http.StatusInternalServerError, genapi.ErrTextNoImage, "")
		case r.Context().Err() != nil:
			a.error(w, http.StatusGatewayTimeout, "request cancelled", "")
		default:
			a.log.Error(r.Context(), "generation failed", "feature", f, "error", err)
			a.error(w, http.StatusBadGateway, "image service failed", "")
		}
		return
	}

	a.json(w, http.StatusOK, genapi.Response{ResultImage: result})
}

func (a *API) error(w http.ResponseWriter, status int, msg, details string) {
	a.json(w, status, genapi.ErrorResponse{Error: msg, Details: details})
}

func (a *API) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
