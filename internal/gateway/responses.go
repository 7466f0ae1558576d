package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/logger"
)

// respondWithError writes a failure envelope so the browser handles gateway errors the same way as API errors.
func respondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Debug("request rejected by gateway",
		slog.Int("status", status),
		slog.String("error_message", message),
	)

	respondWithJSON(w, status, client.Result{
		OK:     false,
		Status: status,
		Error:  message,
	})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok":false,"status":500,"error":"Internal Server Error","results":null}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
