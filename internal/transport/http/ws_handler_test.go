package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/game"
	"github.com/alejandrocid0/alagloria-sub001/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, status domain.Status) (*httptest.Server, *game.Service) {
	t.Helper()

	states := memory.NewStateStore()
	games := memory.NewGameRepository(memory.NewStaticGameLoader(sampleGames()), time.Minute)
	directory := memory.NewDirectory()
	service := game.NewService(states, games, memory.NewAnswerStore(), memory.NewResultStore(), directory, game.NewBroker(), game.DefaultDurations())

	err := states.Create(context.Background(), domain.LiveGameState{
		GameID:           "gloria-1",
		Status:           status,
		QuestionIndex:    0,
		CountdownSeconds: 20,
		UpdatedAt:        time.Now(),
		StartedAt:        time.Now(),
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}

	router := NewRouter(NewWSHandler(service, directory), NewAdminHandler(service, "secret"))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, service
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketAnswerFlow(t *testing.T) {
	server, _ := newTestServer(t, domain.StatusQuestion)
	conn := dialWS(t, server, "gameId=gloria-1&userId=u1&name=Alice")

	// The initial phase snapshot carries the active question.
	msgType, payload := readNext(conn, t, "phase")
	if msgType != "phase" {
		t.Fatalf("expected phase, got %s", msgType)
	}
	question, ok := payload["question"].(map[string]any)
	if !ok {
		t.Fatalf("expected question in phase payload, got %v", payload)
	}
	options, ok := question["options"].([]any)
	if !ok || len(options) != 3 {
		t.Fatalf("expected 3 options, got %v", question["options"])
	}
	for _, raw := range options {
		opt := raw.(map[string]any)
		if _, leaked := opt["correct"]; leaked {
			t.Fatalf("option leaked correctness: %v", opt)
		}
	}

	readNext(conn, t, "leaderboard")

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionIndex": 0,
			"optionId":      "o1",
			"latencyMs":     800,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// Expect answerResult plus a leaderboard push, in either order.
	answerSeen := false
	leaderboardSeen := false
	for i := 0; i < 3; i++ {
		typ, p := readNext(conn, t, "")
		switch typ {
		case "answerResult":
			answerSeen = true
			if p["correct"] != true {
				t.Fatalf("expected correct answer, got %v", p)
			}
			if p["correctOptionId"] != "o1" {
				t.Fatalf("expected revealed correct option, got %v", p)
			}
		case "leaderboard":
			leaderboardSeen = true
		}
		if answerSeen && leaderboardSeen {
			break
		}
	}
	if !answerSeen || !leaderboardSeen {
		t.Fatalf("expected answerResult and leaderboard, got answerResult=%v leaderboard=%v", answerSeen, leaderboardSeen)
	}

	// A duplicate is acknowledged, not errored.
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write duplicate: %v", err)
	}
	for i := 0; i < 3; i++ {
		typ, _ := readNext(conn, t, "")
		if typ == "alreadyAnswered" {
			return
		}
	}
	t.Fatalf("expected alreadyAnswered acknowledgement")
}

func TestWebSocketPhaseRecheck(t *testing.T) {
	server, _ := newTestServer(t, domain.StatusWaiting)
	conn := dialWS(t, server, "gameId=gloria-1&userId=u1&name=Alice")

	readNext(conn, t, "phase")
	readNext(conn, t, "leaderboard")

	if err := conn.WriteJSON(map[string]any{"type": "phase"}); err != nil {
		t.Fatalf("write phase request: %v", err)
	}
	_, payload := readNext(conn, t, "phase")
	if payload["status"] != string(domain.StatusWaiting) {
		t.Fatalf("expected waiting phase, got %v", payload["status"])
	}
}

func TestWebSocketPushesPhaseChange(t *testing.T) {
	server, service := newTestServer(t, domain.StatusWaiting)
	conn := dialWS(t, server, "gameId=gloria-1&userId=u1&name=Alice")

	readNext(conn, t, "phase")
	readNext(conn, t, "leaderboard")

	if _, err := service.ForceAdvance(context.Background(), "gloria-1", ""); err != nil {
		t.Fatalf("force advance: %v", err)
	}

	_, payload := readNext(conn, t, "phase")
	if payload["status"] != string(domain.StatusQuestion) {
		t.Fatalf("expected pushed question phase, got %v", payload["status"])
	}
	if payload["question"] == nil {
		t.Fatalf("expected question with pushed phase")
	}
}

func TestWebSocketRejectsUnknownGame(t *testing.T) {
	server, _ := newTestServer(t, domain.StatusQuestion)

	resp, err := http.Get(server.URL + "/ws?gameId=nope&userId=u1&name=Alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", resp.StatusCode)
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	server, _ := newTestServer(t, domain.StatusQuestion)

	resp, err := http.Get(server.URL + "/ws?gameId=gloria-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without identity, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleGames() map[string]domain.GameDefinition {
	return map[string]domain.GameDefinition{
		"gloria-1": {
			ID:          "gloria-1",
			Title:       "Madrugá",
			ScheduledAt: time.Now().Add(-time.Minute),
			Questions: []domain.Question{
				{
					ID:       "q1",
					Position: 1,
					Prompt:   "¿Qué hermandad sale de San Lorenzo?",
					Options: []domain.Option{
						{ID: "o1", Text: "El Gran Poder"},
						{ID: "o2", Text: "La Macarena"},
						{ID: "o3", Text: "El Cachorro"},
					},
					CorrectOptionID: "o1",
				},
				{
					ID:       "q2",
					Position: 2,
					Prompt:   "¿En qué día procesiona El Silencio?",
					Options: []domain.Option{
						{ID: "o1", Text: "Jueves Santo"},
						{ID: "o2", Text: "Madrugá"},
						{ID: "o3", Text: "Domingo de Ramos"},
					},
					CorrectOptionID: "o2",
				},
			},
		},
	}
}
