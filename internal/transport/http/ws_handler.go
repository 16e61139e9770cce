package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/game"
	"github.com/gorilla/websocket"
)

// UserRegistry records joining users so leaderboards can resolve names.
type UserRegistry interface {
	Put(user domain.User)
}

type WSHandler struct {
	service  *game.Service
	users    UserRegistry
	upgrader websocket.Upgrader
}

func NewWSHandler(service *game.Service, users UserRegistry) *WSHandler {
	return &WSHandler{
		service: service,
		users:   users,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionView is the client-safe projection of a question: options are
// shuffled per viewer and the correct option ID is withheld until the
// answer result.
type questionView struct {
	Index   int             `json:"index"`
	Prompt  string          `json:"prompt"`
	Options []domain.Option `json:"options"`
}

type phasePayload struct {
	game.PhaseView
	Question *questionView `json:"question,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// live-game use cases: phase and leaderboard pushes out, answers in.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if gameID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing gameId, userId, or name", http.StatusBadRequest)
		return
	}

	phase, err := h.service.Phase(r.Context(), gameID)
	if err != nil {
		http.Error(w, "game not live", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.users.Put(domain.User{ID: userID, DisplayName: displayName})

	events, cancel := h.service.Subscribe(gameID)
	defer cancel()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg, ok := h.eventMessage(r.Context(), ev, rnd)
				if !ok {
					continue
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "phase", Payload: h.phasePayload(r.Context(), gameID, phase, rnd)}
	if lb, err := h.service.Leaderboard(r.Context(), gameID); err == nil {
		send <- outboundMessage[any]{Type: "leaderboard", Payload: lb}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var sub domain.AnswerSubmission
			if err := json.Unmarshal(inbound.Payload, &sub); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			result, _, err := h.service.SubmitAnswer(r.Context(), gameID, userID, sub)
			if err != nil {
				send <- answerFailure(sub, err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		case "phase":
			// Clients re-check state when their local countdown expires
			// before a push arrives.
			view, err := h.service.Phase(r.Context(), gameID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "game not live"}}
				continue
			}
			send <- outboundMessage[any]{Type: "phase", Payload: h.phasePayload(r.Context(), gameID, view, rnd)}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// eventMessage converts a broker event into its wire message.
func (h *WSHandler) eventMessage(ctx context.Context, ev domain.ChangeEvent, rnd *rand.Rand) (outboundMessage[any], bool) {
	switch ev.Kind {
	case domain.EventStateChanged:
		now := time.Now()
		view := game.PhaseView{
			Status:           ev.State.Status,
			QuestionIndex:    ev.State.QuestionIndex,
			SecondsRemaining: ev.State.Remaining(now),
			CountdownSeconds: ev.State.CountdownSeconds,
			UpdatedAt:        ev.State.UpdatedAt,
			ServerNow:        now,
		}
		return outboundMessage[any]{Type: "phase", Payload: h.phasePayload(ctx, ev.GameID, view, rnd)}, true
	case domain.EventLeaderboardUpdated:
		return outboundMessage[any]{Type: "leaderboard", Payload: *ev.Leaderboard}, true
	}
	// Raw answer inserts stay server-side; clients get the leaderboard.
	return outboundMessage[any]{}, false
}

func (h *WSHandler) phasePayload(ctx context.Context, gameID string, view game.PhaseView, rnd *rand.Rand) phasePayload {
	payload := phasePayload{PhaseView: view}
	if view.Status != domain.StatusQuestion {
		return payload
	}
	question, ok, err := h.service.CurrentQuestion(ctx, gameID)
	if err != nil || !ok {
		return payload
	}
	payload.Question = &questionView{
		Index:   view.QuestionIndex,
		Prompt:  question.Prompt,
		Options: game.ShuffleOptions(question.Options, rnd),
	}
	return payload
}

// answerFailure maps submission errors to the client-facing outcome. A
// duplicate is acknowledged, not treated as an error.
func answerFailure(sub domain.AnswerSubmission, err error) outboundMessage[any] {
	switch {
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return outboundMessage[any]{Type: "alreadyAnswered", Payload: map[string]int{"questionIndex": sub.QuestionIndex}}
	case errors.Is(err, domain.ErrQuestionNotActive):
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "question no longer active"}}
	case errors.Is(err, domain.ErrNotInQuestionPhase):
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "answers are closed for this phase"}}
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
}
