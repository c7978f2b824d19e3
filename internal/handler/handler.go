// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

const maxBodyBytes = 1 << 20 // 1 MB limit

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, model.SuccessResponse{Success: true, Data: data})
}

// serviceErrorResponse renders a *service.Error as the JSON envelope.
func serviceErrorResponse(e *service.Error) model.ErrorResponse {
	return model.ErrorResponse{
		Error:  e.Message,
		Errors: e.Errors,
		Code:   e.Code,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Anything but EOF after the first value, including a stray "}", is
	// trailing data.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
