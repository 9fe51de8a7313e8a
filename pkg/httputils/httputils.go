package httputils

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CorrelationIDHeader = "X-Correlation-Id"

// GetCorrelationID extracts the correlation ID from the request header.
// If not present, generates a new UUID v4.
func GetCorrelationID(r *http.Request) string {
	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return correlationID
}

// RespondJSON writes data as a flat JSON body with the given status. The
// correlation ID travels in the response header, never the body.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set(CorrelationIDHeader, GetCorrelationID(r))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode json response", zap.Error(err))
	}
}

// RespondError writes a flat {"error": message} body.
func RespondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	RespondJSON(w, r, status, map[string]string{"error": message})
}
