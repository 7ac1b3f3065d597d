package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// JSON writes data with statusCode. A value that cannot be encoded is
// logged and answered with a 500 instead of a truncated body.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		GetLogger().Error("failed to encode response",
			zap.Int("status", statusCode),
			zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"GENERIC_ERROR","message":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(append(body, '\n')); err != nil {
		GetLogger().Warn("failed to write response", zap.Error(err))
	}
}
