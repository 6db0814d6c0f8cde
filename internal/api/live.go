package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kidventure/kidventure/internal/live"
	"github.com/kidventure/kidventure/internal/progress"
)

const liveWriteTimeout = 5 * time.Second

// handleLive streams a student's record changes over a websocket. The first
// message carries the current record. The subscription is opened before that
// record is read, so no write is lost in between; a write landing in that
// window may arrive twice.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "live updates are disabled", Code: "disabled"})
		return
	}
	studentID, err := progress.NormalizeID("studentId", r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sub, err := s.hub.Subscribe(r.Context(), studentID)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("live subscribe: %w", err))
		return
	}
	defer sub.Close()

	rec, err := s.svc.Get(r.Context(), studentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Clear the server write deadline; the stream outlives it.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "request_id", RequestID(r.Context()), "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	if err := writeChange(ctx, conn, live.NewChange(live.KindSnapshot, rec)); err != nil {
		return
	}
	s.logger.Debug("live stream opened", "student_id", rec.StudentID)

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := writeChange(ctx, conn, change); err != nil {
				s.logger.Debug("live write failed", "student_id", rec.StudentID, "error", err)
				return
			}
		}
	}
}

func writeChange(ctx context.Context, conn *websocket.Conn, change live.Change) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, change)
}
