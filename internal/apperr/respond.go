package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mavi-pizzeria/api/internal/logger"
	"go.uber.org/zap"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WriteJSON writes v as-is with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode json response", zap.Error(err))
	}
}

// WriteData writes a success envelope carrying data.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Success: true, Message: msg})
}

// WriteError maps err to a status code and failure envelope. Unclassified
// errors are logged with the request context and answered with a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if !errors.As(err, &e) {
		logger.Error(r.Context(), "unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		WriteJSON(w, http.StatusInternalServerError, Envelope{Message: "internal server error"})
		return
	}

	status := e.Kind.Status()
	msg := e.Msg
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", e.Kind.String()),
			zap.Error(err),
		)
		if e.Kind == KindInternal {
			msg = "internal server error"
		}
	}

	WriteJSON(w, status, Envelope{Message: msg})
}
