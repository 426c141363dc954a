package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, code int, msg string, kind apperr.Kind, details any) {
	writeJSON(w, code, envelope{Error: &errorBody{Message: msg, Code: string(kind), Details: details}})
}

// writeError maps service errors onto the envelope. Errors outside the
// apperr taxonomy become a bare 500 so store or driver text never reaches
// the client.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "Internal Server Error", apperr.KindInternal, nil)
		return
	}

	status := apperr.HTTPStatus(ae.Kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.String("kind", string(ae.Kind)), zap.Error(err))
	}
	msg := ae.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeFail(w, status, msg, ae.Kind, ae.Details)
}
