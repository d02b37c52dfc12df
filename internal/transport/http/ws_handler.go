package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"rest-polls/internal/app"
	"rest-polls/internal/domain"
	"rest-polls/internal/view"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler accepts poll submissions over a websocket. Once the first submission
// creates a user, later submissions on the same connection are recorded for that user.
type WSHandler struct {
	service  *app.PollService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PollService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid userId", http.StatusBadRequest)
			return
		}
		if _, err := h.service.UserResults(r.Context(), id); err != nil {
			status, body := statusFor(err)
			writeJSON(w, status, body)
			return
		}
		userID = &id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// Single writer; gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logrus.WithError(err).Warn("ws write failed")
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var in domain.ProcessInput
			if err := json.Unmarshal(inbound.Payload, &in); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}}
				continue
			}
			result, err := h.service.Process(r.Context(), userID, in)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			if userID == nil {
				id := result.UserID
				userID = &id
			}
			send <- outboundMessage{Type: "result", Payload: view.Process(result)}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}

func errorMessage(err error) outboundMessage {
	status, _ := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("ws submission failed")
		return outboundMessage{Type: "error", Payload: errorPayload{Message: "internal error"}}
	}
	payload := errorPayload{Message: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		payload.Fields = ve.Fields
	}
	return outboundMessage{Type: "error", Payload: payload}
}
