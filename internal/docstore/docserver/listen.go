package docserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/docstore/wire"
)

const writeTimeout = 10 * time.Second

// handleListen upgrades to a WebSocket, reads one ListenRequest and streams
// frames until the client disconnects or the query fails.
func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("listen upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var req wire.ListenRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Debug("listen request unreadable", "err", err)
		_ = s.writeFrame(conn, wire.ErrorFrame(&docstore.Error{Code: docstore.CodeInvalidArgument, Message: "malformed listen request", Err: err}))
		return
	}

	out := make(chan wire.ListenMessage, 16)
	done := make(chan struct{})
	defer close(done)
	send := func(msg wire.ListenMessage) {
		select {
		case out <- msg:
		case <-done:
		}
	}

	handle, err := s.backend.Subscribe(req.Query,
		func(records []docstore.Record) { send(wire.Snapshot(records)) },
		func(err error) { send(wire.ErrorFrame(err)) },
	)
	if err != nil {
		_ = s.writeFrame(conn, wire.ErrorFrame(err))
		return
	}
	defer handle.Cancel()
	s.logger.Debug("listen attached", "collection", req.Query.Collection, "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-out:
			if err := s.writeFrame(conn, msg); err != nil {
				s.logger.Debug("listen write failed", "err", err)
				return
			}
			if msg.Type == wire.TypeError {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, msg wire.ListenMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
