// Package ws exposes the game over a websocket endpoint: HELLO/WELCOME
// handshake, then one RESULT per ACTION. Actions are processed in arrival
// order per connection; responses go out through a writer goroutine.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/game"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/tuning"
)

type Server struct {
	game *game.Game
	tune tuning.Tuning
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(g *game.Game, tune tuning.Tuning, logger *log.Logger) *Server {
	return &Server{
		game: g,
		tune: tune,
		log:  logger,
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

		sessionID := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, 32)

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

		limiter := rate.NewLimiter(
			rate.Limit(s.tune.RateLimits.ActionsPerSecond),
			s.tune.RateLimits.ActionBurst,
		)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeAction {
				continue
			}
			var act protocol.ActionMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				continue
			}

			var res protocol.ResultMsg
			switch {
			case act.ProtocolVersion != protocol.Version:
				res = errResult(act.ID, protocol.ErrProtoBadRequest, "bad protocol_version")
			case !limiter.Allow():
				res = errResult(act.ID, protocol.ErrRateLimit, "slow down")
			default:
				res = s.game.HandleAction(sessionID, act)
			}

			b, err := json.Marshal(res)
			if err != nil {
				s.log.Printf("[ws] marshal result: %v", err)
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

// handshake expects HELLO as the first frame and answers WELCOME with the
// loaded catalog digests. Returns the attached session id, or "" on failure.
func (s *Server) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return ""
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return ""
	}

	sessionID := hello.SessionID
	if sessionID == "" {
		sessionID = item.NewID()
	}
	if _, err := s.game.AttachProfile(sessionID); err != nil {
		s.log.Printf("[ws] attach %s: %v", sessionID, err)
		closeWith(conn, "profile unavailable")
		return ""
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Catalogs:        s.game.CatalogDigests(),
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return ""
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return ""
	}
	return sessionID
}

func errResult(ref, code, msg string) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             ref,
		ErrorCode:       code,
		ErrorMessage:    msg,
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second),
	)
}
