package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crushline/automsg/internal/service"
)

// MessageHandler accepts inbound subscriber messages. Recording the message
// is synchronous; the trigger hook it fires is not, and its outcome never
// shows up in this response.
type MessageHandler struct {
	Service *service.MessageService
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	creatorID, err := strconv.Atoi(chi.URLParam(r, "creatorID"))
	if err != nil {
		http.Error(w, "invalid creator id", http.StatusBadRequest)
		return
	}

	var body struct {
		SubscriberID int     `json:"subscriber_id"`
		Body         string  `json:"body"`
		MediaURL     *string `json:"media_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.SubscriberID <= 0 {
		http.Error(w, "subscriber_id is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Body) == "" {
		http.Error(w, "message body cannot be blank", http.StatusBadRequest)
		return
	}

	msg, err := h.Service.RecordInbound(creatorID, body.SubscriberID, body.Body, body.MediaURL)
	if err != nil {
		http.Error(w, "failed to record message: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
