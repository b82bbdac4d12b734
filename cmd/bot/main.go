package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"worldevents.ai/internal/protocol"
)

// bot is a scripted player: it wanders around its start point and contributes to every event
// whose progress bar it is shown.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "player name")
		startX = flag.Float64("x", 150, "start x")
		startZ = flag.Float64("z", 150, "start z")
		wander = flag.Float64("wander", 20, "max distance from the start point")
		every  = flag.Duration("move_every", 2*time.Second, "how often to send POS")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := [3]float64{*startX, 64, *startZ}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		Pos:             start,
		MaxQueue:        64,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	// gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	send := func(v any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteJSON(v)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	go func() {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		t := time.NewTicker(*every)
		defer t.Stop()
		for range t.C {
			pos := [3]float64{
				start[0] + (r.Float64()*2-1)*(*wander),
				start[1],
				start[2] + (r.Float64()*2-1)*(*wander),
			}
			send(protocol.PosMsg{Type: protocol.TypePos, ProtocolVersion: protocol.Version, Pos: pos})
		}
	}()

	contributed := map[string]bool{}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player_id=%s tick_rate=%d events=%s", w.PlayerID, w.TickRateHz, w.EventsDigest)

		case protocol.TypeTitle:
			var m protocol.TitleMsg
			if err := json.Unmarshal(msg, &m); err == nil {
				logger.Printf("TITLE %s | %s", m.Title, m.Subtitle)
			}

		case protocol.TypeMessage:
			var m protocol.TextMsg
			if err := json.Unmarshal(msg, &m); err == nil {
				logger.Printf("MESSAGE %s", m.Text)
			}

		case protocol.TypeProgress:
			var m protocol.ProgressMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			id, ok := instanceFromBar(m.BarID)
			if !ok || contributed[id] {
				continue
			}
			contributed[id] = true
			logger.Printf("contributing to %s (%s)", id, m.Title)
			send(protocol.ContributeMsg{Type: protocol.TypeContribute, ProtocolVersion: protocol.Version, InstanceID: id})

		case protocol.TypeProgressHide:
			var m protocol.ProgressHideMsg
			if err := json.Unmarshal(msg, &m); err == nil {
				if id, ok := instanceFromBar(m.BarID); ok {
					delete(contributed, id)
				}
			}

		case protocol.TypeError:
			var m protocol.ErrorMsg
			if err := json.Unmarshal(msg, &m); err == nil {
				logger.Printf("ERROR %s %s", m.Code, m.Message)
			}
		}
	}
}

// instanceFromBar extracts the instance id from an event progress bar id ("event:<id>").
func instanceFromBar(barID string) (string, bool) {
	id, ok := strings.CutPrefix(barID, "event:")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
