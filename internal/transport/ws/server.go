package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"worldevents.ai/internal/protocol"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// Contributions accepts explicit player contributions; *director.Scheduler implements it.
type Contributions interface {
	Contribute(instanceID, playerID string) error
}

// Info is echoed to every player in WELCOME.
type Info struct {
	TickRateHz   int
	EventsDigest string
}

type Server struct {
	players *world.PlayerDirectory
	events  Contributions
	info    Info
	log     *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(players *world.PlayerDirectory, events Contributions, info Info, logger *log.Logger) *Server {
	s := &Server{
		players: players,
		events:  events,
		info:    info,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
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
		defer s.players.Leave(playerID)

		ctx, cancel := context.WithCancel(context.Background())
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

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handle(playerID, msg)
		}
	}
}

func (s *Server) handle(playerID string, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.players.SendError(playerID, protocol.ErrProtoBadRequest, "malformed json")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.players.SendError(playerID, protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}

	switch base.Type {
	case protocol.TypePos:
		var pos protocol.PosMsg
		if err := json.Unmarshal(msg, &pos); err != nil {
			s.players.SendError(playerID, protocol.ErrProtoBadRequest, "bad POS")
			return
		}
		s.players.Move(playerID, world.Location{World: pos.World, X: pos.Pos[0], Y: pos.Pos[1], Z: pos.Pos[2]})

	case protocol.TypeContribute:
		var c protocol.ContributeMsg
		if err := json.Unmarshal(msg, &c); err != nil || c.InstanceID == "" {
			s.players.SendError(playerID, protocol.ErrProtoBadRequest, "bad CONTRIBUTE")
			return
		}
		if err := s.events.Contribute(c.InstanceID, playerID); err != nil {
			s.players.SendError(playerID, director.ErrorCode(err), err.Error())
		}

	default:
		s.players.SendError(playerID, protocol.ErrProtoBadRequest, "unknown type "+base.Type)
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

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 32
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out = make(chan []byte, maxQ)

	loc := world.Location{World: hello.World, X: hello.Pos[0], Y: hello.Pos[1], Z: hello.Pos[2]}
	if loc.World == "" {
		loc.World = world.DefaultWorld
	}
	playerID = s.players.Join(hello.PlayerName, loc, out)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        playerID,
		TickRateHz:      s.info.TickRateHz,
		EventsDigest:    s.info.EventsDigest,
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.players.Leave(playerID)
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("player joined id=%s name=%q world=%s", playerID, hello.PlayerName, loc.World)
	}
	return playerID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
