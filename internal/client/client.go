package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/game"
)

var (
	// ErrNotConnected is returned when acting without a live connection.
	ErrNotConnected = errors.New("not connected")
	// ErrNotInQuestionPhase rejects selections outside the question phase.
	ErrNotInQuestionPhase = errors.New("no question is active")
	// ErrAlreadySelected enforces the one-selection-per-question UI lock.
	ErrAlreadySelected = errors.New("option already selected for this question")
)

// Envelope is the wire frame exchanged with the server.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Conn is one realtime connection to the game server.
type Conn interface {
	Receive() (Envelope, error)
	Submit(sub domain.AnswerSubmission) error
	RequestPhase() error
	Close() error
}

// QuestionView is the client-safe question projection pushed by the server.
type QuestionView struct {
	Index   int             `json:"index"`
	Prompt  string          `json:"prompt"`
	Options []domain.Option `json:"options"`
}

// PhaseUpdate is a server phase snapshot, optionally carrying the active
// question.
type PhaseUpdate struct {
	game.PhaseView
	Question *QuestionView `json:"question,omitempty"`
}

// Options configures a GameClient. Everything that used to be ambient
// state (clock, notification surface, reconnect policy) is explicit here.
type Options struct {
	Dial  func(ctx context.Context) (Conn, error)
	Sink  NotificationSink
	Clock func() time.Time

	ReconnectBase        time.Duration
	ReconnectMax         time.Duration
	MaxReconnects        int
	MaxSpeculativeChecks int

	OnPhase        func(PhaseUpdate)
	OnLeaderboard  func(domain.Leaderboard)
	OnAnswerResult func(domain.AnswerResult)
}

func (o *Options) applyDefaults() error {
	if o.Dial == nil {
		return errors.New("client: Dial is required")
	}
	if o.Sink == nil {
		o.Sink = NopSink{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = 30 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 8
	}
	if o.MaxSpeculativeChecks <= 0 {
		o.MaxSpeculativeChecks = 3
	}
	return nil
}

// GameClient mirrors the server's phase locally but is never
// authoritative: it only displays what the server asserts, correcting
// for clock skew and reconnect gaps. All timer logic funnels through a
// single Tick entry point so tests can drive it with an injected clock.
type GameClient struct {
	opts Options

	mu              sync.Mutex
	conn            Conn
	phase           game.PhaseView
	havePhase       bool
	deadline        time.Time // zero when no local timer is armed
	speculative     int
	questionShownAt time.Time
	selections      map[int]string
}

func New(opts Options) (*GameClient, error) {
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}
	return &GameClient{
		opts:       opts,
		selections: make(map[int]string),
	}, nil
}

// ApplyPhase reconciles the local mirror with a server snapshot. The
// local deadline is re-armed from the server-computed remainder, never
// from a full local countdown, so time spent disconnected is absorbed.
func (c *GameClient) ApplyPhase(update PhaseUpdate) {
	c.mu.Lock()
	changed := !c.havePhase ||
		c.phase.Status != update.Status ||
		c.phase.QuestionIndex != update.QuestionIndex
	c.phase = update.PhaseView
	c.havePhase = true

	remaining := update.SecondsRemaining
	if remaining < 0 {
		remaining = 0
	}
	now := c.opts.Clock()
	c.deadline = now.Add(time.Duration(remaining) * time.Second)
	if changed {
		c.speculative = 0
		if update.Status == domain.StatusQuestion {
			c.questionShownAt = now
		}
	}
	onPhase := c.opts.OnPhase
	c.mu.Unlock()

	if onPhase != nil {
		onPhase(update)
	}
}

// Tick drives the local timer. When a waiting or question deadline
// expires before a push arrives, the client speculatively re-checks the
// server, bounded so a stuck server is not hammered. Result and
// leaderboard phases are never re-checked locally: only the scheduler
// advances them, which keeps clients from racing each other.
func (c *GameClient) Tick(now time.Time) {
	c.mu.Lock()
	if !c.havePhase || c.deadline.IsZero() || now.Before(c.deadline) {
		c.mu.Unlock()
		return
	}

	switch c.phase.Status {
	case domain.StatusWaiting, domain.StatusQuestion:
		if c.speculative < c.opts.MaxSpeculativeChecks && c.conn != nil {
			c.speculative++
			c.deadline = now.Add(time.Second)
			conn := c.conn
			c.mu.Unlock()
			_ = conn.RequestPhase()
			return
		}
		c.deadline = time.Time{}
	default:
		c.deadline = time.Time{}
	}
	c.mu.Unlock()
}

// SecondsRemaining reports the display countdown as of now.
func (c *GameClient) SecondsRemaining(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.havePhase || c.deadline.IsZero() {
		return 0
	}
	if remaining := int(c.deadline.Sub(now) / time.Second); remaining > 0 {
		return remaining
	}
	return 0
}

// Phase returns the last server-asserted phase snapshot.
func (c *GameClient) Phase() (game.PhaseView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase, c.havePhase
}

// SelectOption submits the user's choice for the current question. A
// second selection for the same question is rejected locally before any
// network traffic; a failed submission keeps the lock in place, since no
// answer is better than a duplicate one.
func (c *GameClient) SelectOption(optionID string) error {
	c.mu.Lock()
	if !c.havePhase || c.phase.Status != domain.StatusQuestion {
		c.mu.Unlock()
		return ErrNotInQuestionPhase
	}
	index := c.phase.QuestionIndex
	if _, ok := c.selections[index]; ok {
		c.mu.Unlock()
		return ErrAlreadySelected
	}
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.selections[index] = optionID
	latency := c.opts.Clock().Sub(c.questionShownAt)
	c.mu.Unlock()

	sub := domain.AnswerSubmission{
		QuestionIndex: index,
		OptionID:      optionID,
		LatencyMs:     int(latency / time.Millisecond),
	}
	if err := conn.Submit(sub); err != nil {
		c.opts.Sink.Notify(Notification{
			Kind:    NoticeSubmissionFailed,
			Message: "your answer could not be sent",
		})
		return err
	}
	return nil
}

// Run maintains the realtime connection until ctx is canceled. Drops
// trigger exponential-backoff reconnects up to MaxReconnects, with
// loss and recovery surfaced through the notification sink.
func (c *GameClient) Run(ctx context.Context) error {
	attempt := 0
	for {
		conn, err := c.opts.Dial(ctx)
		if err != nil {
			attempt++
			if attempt > c.opts.MaxReconnects {
				return fmt.Errorf("reconnect attempts exhausted: %w", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoffDelay(attempt)):
			}
			continue
		}

		if attempt > 0 {
			c.opts.Sink.Notify(Notification{Kind: NoticeConnectionRestored, Message: "connection restored"})
		}
		attempt = 0
		c.setConn(conn)
		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		c.opts.Sink.Notify(Notification{Kind: NoticeConnectionLost, Message: "connection lost, retrying"})
		attempt = 1
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.backoffDelay(attempt)):
		}
		_ = err
	}
}

func (c *GameClient) readLoop(ctx context.Context, conn Conn) error {
	tickerDone := make(chan struct{})
	defer close(tickerDone)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickerDone:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Tick(c.opts.Clock())
			}
		}
	}()

	for {
		env, err := conn.Receive()
		if err != nil {
			return err
		}
		c.dispatch(env)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *GameClient) dispatch(env Envelope) {
	switch env.Type {
	case "phase":
		var update PhaseUpdate
		if err := json.Unmarshal(env.Payload, &update); err == nil {
			c.ApplyPhase(update)
		}
	case "leaderboard":
		var lb domain.Leaderboard
		if err := json.Unmarshal(env.Payload, &lb); err == nil && c.opts.OnLeaderboard != nil {
			c.opts.OnLeaderboard(lb)
		}
	case "answerResult":
		var result domain.AnswerResult
		if err := json.Unmarshal(env.Payload, &result); err == nil && c.opts.OnAnswerResult != nil {
			c.opts.OnAnswerResult(result)
		}
	case "alreadyAnswered":
		// The local lock already covers this; nothing to show.
	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(env.Payload, &payload)
		c.opts.Sink.Notify(Notification{Kind: NoticeServerError, Message: payload.Message})
	}
}

func (c *GameClient) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *GameClient) backoffDelay(attempt int) time.Duration {
	delay := c.opts.ReconnectBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.opts.ReconnectMax {
			return c.opts.ReconnectMax
		}
	}
	if delay > c.opts.ReconnectMax {
		return c.opts.ReconnectMax
	}
	return delay
}
