package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// envelope is the wire shape of every admin API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Type    string `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode api response")
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeError maps err onto the taxonomy. The raw error text of unclassified
// failures stays in the server logs; callers get a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errType := types.TypeOf(err)
	message := err.Error()
	if errType == types.ServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("unclassified error reached the api boundary")
		message = "internal server error"
	}
	writeJSON(w, errType.HTTPStatus(), envelope{
		Success: false,
		Error:   message,
		Type:    errType.String(),
	})
}
