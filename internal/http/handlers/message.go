package handlers

import (
	"errors"
	"net/http"

	"github.com/pageproc/page-processor-back/internal/router"
)

// Message is the wire form of the message router: every extension surface
// posts typed requests here and receives the router's structured payload.
func (api *API) Message(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var message router.Message
	if err := decodeJSON(r, &message); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed message body")
		return
	}

	sender := router.Sender{TabID: message.TabID}
	response, err := api.router.Dispatch(r.Context(), message, sender)
	if err != nil {
		switch {
		case errors.Is(err, router.ErrUnknownMessageType):
			writeError(w, r, http.StatusBadRequest, "unknown_message_type", err.Error())
		case errors.Is(err, router.ErrInvalidMessage):
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "message dispatch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, response)
}
