package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies read by Decode.
const maxBodyBytes = 1 << 20

// StatusOf maps an error kind to the HTTP status returned for it.
func StatusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindInvalidDateRange, domain.KindInvalidDepartment, domain.KindInvalidDiscount:
		return http.StatusBadRequest
	case domain.KindBaselineNotFound:
		return http.StatusUnprocessableEntity
	case domain.KindScenarioNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON request body into v. Malformed bodies are reported as
// InvalidInput so they surface as 400.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewError(domain.KindInvalidInput, "request body is empty")
		}
		return domain.WrapError(domain.KindInvalidInput, err, "malformed request body")
	}
	return nil
}

func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

// Error writes {"error": {"kind", "message"}}. Untyped errors are reported as
// ComputationError without leaking their text.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	body := api.ErrorBody{Kind: string(domain.KindComputationError), Message: "internal error"}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Kind = string(de.Kind)
		body.Message = de.Message
	}

	status := StatusOf(domain.ErrorKind(body.Kind))
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	JSON(w, r, status, api.ErrorResponse{Error: body})
}
