// pattern: Imperative Shell

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// watchInterval is how often the watch endpoint re-derives status.
const watchInterval = 2 * time.Second

// statusFrame is one message of the watch stream.
type statusFrame struct {
	Branch string `json:"branch"`
	Status any    `json:"status"`
}

// handleGitWatch upgrades to websocket and streams the repository status,
// pushing a frame on connect and then whenever the derived state changes.
func (s *Server) handleGitWatch(w http.ResponseWriter, r *http.Request) {
	repo, err := s.resolver.Resolve(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}

	// Upgrade to websocket; do NOT use r.Context() after this.
	// Restrict to localhost origins to prevent cross-origin WebSocket attacks.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"127.0.0.1:*", "localhost:*"},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// CloseRead returns a context cancelled when the client goes away.
	ctx := conn.CloseRead(context.Background())

	var last []byte
	send := func() bool {
		frame, err := s.buildStatusFrame(ctx, repo)
		if err != nil {
			return false
		}
		if bytes.Equal(frame, last) {
			return true
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return false
		}
		last = frame
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}

func (s *Server) buildStatusFrame(ctx context.Context, repo string) ([]byte, error) {
	status, err := s.git.Status(ctx, repo)
	if err != nil {
		return nil, err
	}
	frame := statusFrame{
		Branch: s.git.CurrentBranch(ctx, repo),
		Status: status,
	}
	return json.Marshal(frame)
}
