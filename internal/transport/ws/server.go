package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridquest.gg/internal/protocol"
	"gridquest.gg/internal/sim/engine"
)

// Server bridges websocket sessions to the shard engine. Each connection runs
// a reader loop plus one writer goroutine; all command processing happens in
// the engine's own goroutine.
type Server struct {
	engine    *engine.Engine
	positions *engine.Positions
	welcome   WelcomeParams
	log       *log.Logger

	upgrader websocket.Upgrader
}

// WelcomeParams is the static handshake payload: rule digests and the tuning
// values the shard actually applies.
type WelcomeParams struct {
	Rules  protocol.RuleDigests
	Tuning protocol.TuningParams
}

func NewServer(e *engine.Engine, pos *engine.Positions, welcome WelcomeParams, logger *log.Logger) *Server {
	return &Server{
		engine:    e,
		positions: pos,
		welcome:   welcome,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(conn)
		if playerID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		s.readLoop(ctx, conn, playerID, out)

		// Cleanup.
		s.engine.Leave() <- playerID
		s.positions.Remove(playerID)
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, playerID string, out chan []byte) {
	resp := make(chan engine.Resolution, 1)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypePos:
			var pos protocol.PosMsg
			if err := json.Unmarshal(msg, &pos); err != nil {
				continue
			}
			s.positions.Set(playerID, pos.X, pos.Y)

		case protocol.TypeOverlay:
			var ov protocol.OverlayMsg
			if err := json.Unmarshal(msg, &ov); err != nil {
				continue
			}
			select {
			case s.engine.Inbox() <- engine.Envelope{
				PlayerID: playerID,
				Seq:      ov.Seq,
				Cmd:      ov.Overlay.Cmd,
				Resp:     resp,
			}:
			case <-ctx.Done():
				return
			}
			var res engine.Resolution
			select {
			case res = <-resp:
			case <-ctx.Done():
				return
			}
			// Replayed envelopes get no reply at all.
			if res.Dropped {
				continue
			}
			b, err := json.Marshal(res.Status)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.Name == "" {
		hello.Name = "player"
	}

	respCh := make(chan engine.JoinResponse, 1)
	s.engine.Join() <- engine.JoinRequest{Name: hello.Name, Resp: respCh}
	jr := <-respCh
	if jr.PlayerID == "" {
		return "", nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        jr.PlayerID,
		SessionID:       uuid.NewString(),
		Rules:           s.welcome.Rules,
		Tuning:          s.welcome.Tuning,
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.engine.Leave() <- jr.PlayerID
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("joined player=%s name=%q", jr.PlayerID, hello.Name)
	}

	return jr.PlayerID, make(chan []byte, 16)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
