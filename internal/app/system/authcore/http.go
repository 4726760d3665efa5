package authcore

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errorEnvelope is the wire shape every rejection renders as.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	IncidentID string `json:"incident_id,omitempty"`
}

// WriteError renders err as the JSON error envelope with the taxonomy
// status code. Server-side failures (5xx) get a generated incident ID
// that is logged together with the underlying cause, so operators can
// match a caller report to a log line without the response leaking any
// internal detail.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := HTTPStatus(err)
	body := errorBody{
		Code:    CodeOf(err),
		Message: PublicMessage(err),
	}

	if status >= 500 {
		body.IncidentID = uuid.NewString()
		if log != nil {
			log.Error("request failed upstream",
				zap.String("incident_id", body.IncidentID),
				zap.String("code", body.Code),
				zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: body})
}
