package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"roomstatus-backend/internal/model"
	"roomstatus-backend/internal/ws"
)

const (
	reconnectBase = 500 * time.Millisecond
	reconnectCap  = 30 * time.Second
)

// Session keeps a client's projection synchronized with the server. On every
// (re)connect it pulls the full snapshot, rebuilds the projection from it,
// and then applies live events until the connection drops; missed events
// while disconnected are recovered by the next full pull, never replayed.
type Session struct {
	baseURL string
	token   string
	proj    *Projection
	httpc   *http.Client
	log     *slog.Logger
}

// NewSession creates a session against baseURL (http:// or https://) using
// the given bearer token.
func NewSession(baseURL, token string, provisionalTTL time.Duration, logger *slog.Logger) *Session {
	return &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		proj:    NewProjection(provisionalTTL),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		log:     logger,
	}
}

// Projection returns the session's local view.
func (s *Session) Projection() *Projection {
	return s.proj
}

// Run connects and reconnects until ctx is cancelled. Each failed attempt
// backs off exponentially up to a cap; a successful connect resets the
// backoff.
func (s *Session) Run(ctx context.Context) error {
	delay := reconnectBase
	for {
		connected, err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			delay = reconnectBase
		}
		s.log.Warn("session.disconnected", "err", err, "retry_in", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > reconnectCap {
			delay = reconnectCap
		}
	}
}

// connectOnce performs one reconciliation cycle: full pull, subscribe, apply
// events until the channel drops. The boolean reports whether the live
// channel was ever established.
func (s *Session) connectOnce(ctx context.Context) (bool, error) {
	if err := s.pull(ctx); err != nil {
		return false, err
	}

	conn, _, err := websocket.Dial(ctx, s.wsURL(), nil)
	if err != nil {
		return false, fmt.Errorf("dial live channel: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	s.log.Info("session.connected", "rooms", s.proj.Len())

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return true, fmt.Errorf("live channel closed: %w", err)
		}
		var ev ws.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Warn("session.event.decode", "err", err)
			continue
		}
		s.proj.Apply(ev)
	}
}

// pull fetches the authoritative snapshot and rebuilds the projection.
func (s *Session) pull(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/logs", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("snapshot pull: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("snapshot pull: unexpected status %d", resp.StatusCode)
	}

	var recs []model.RoomRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return fmt.Errorf("snapshot decode: %w", err)
	}
	s.proj.ReplaceAll(recs)
	return nil
}

func (s *Session) wsURL() string {
	u := s.baseURL + "/ws?token=" + s.token
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	return "ws://" + strings.TrimPrefix(u, "http://")
}
