package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"quizforge-service/internal/app"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
	closing bool
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeAttemptWS upgrades to a websocket that streams attempt snapshots and accepts
// answer, next, previous and abandon messages. The server closes the socket once the
// attempt finishes and its last snapshot has been sent.
func (s *Server) ServeAttemptWS(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.service.Attempt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := attempt.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections support one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if msg.closing {
				frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt finished")
				_ = conn.WriteMessage(websocket.CloseMessage, frame)
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).WithField("attempt", attempt.ID()).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					select {
					case send <- outboundMessage[any]{closing: true}:
					case <-closeSignals:
					case <-writerDone:
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := dispatch(attempt, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one client message to the attempt. Resulting snapshots reach the
// client through the subscription.
func dispatch(attempt *app.Attempt, msg inboundMessage) error {
	switch msg.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		return attempt.SelectAnswer(payload.QuestionID, payload.Answer)
	case "next":
		return attempt.Next()
	case "previous":
		return attempt.Previous()
	case "abandon":
		attempt.Abandon()
		return nil
	}
	return fmt.Errorf("unsupported message type %q", msg.Type)
}
