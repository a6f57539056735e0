package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"gridquest.gg/internal/protocol"
)

// Scripted smoke client: joins, reports a position, crafts, opens a trade,
// cancels it, and prints every cmd_status it gets back.
func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "player name")
		x    = flag.Float64("x", 0, "reported x")
		y    = flag.Float64("y", 0, "reported y")
		to   = flag.String("to", "", "counterparty for the scripted trade (empty to skip)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var seq uint64
	send := func(cmd protocol.CmdReq) {
		seq++
		_ = conn.WriteJSON(protocol.OverlayMsg{
			Type:    protocol.TypeOverlay,
			Seq:     seq,
			Overlay: protocol.Overlay{Cmd: cmd},
		})
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

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
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player=%s session=%s ttl_ms=%d r=%.0f",
				w.PlayerID, w.SessionID, w.Tuning.OfferTTLMs, w.Tuning.ProximityR)

			_ = conn.WriteJSON(protocol.PosMsg{Type: protocol.TypePos, X: *x, Y: *y})
			send(protocol.CmdReq{Kind: "make", Items: map[string]int{"rope": 1}})
			if *to != "" {
				send(protocol.CmdReq{
					Kind: "trade",
					To:   *to,
					Give: map[string]int{"wood": 2},
					Want: map[string]int{"rock": 1},
				})
			}

		case protocol.TypeCmdStatus:
			var st protocol.CmdStatus
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			logger.Printf("cmd_status kind=%s status=%s reason=%s txid=%s", st.Kind, st.Status, st.Reason, st.Txid)
			if st.Kind == "trade" && st.Status == protocol.StatusAccepted && st.Txid != "" {
				// Walk the offer through its second phase.
				send(protocol.CmdReq{Kind: "cancel", Txid: st.Txid})
			}
		}
	}
}
