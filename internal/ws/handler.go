package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sofytk/lazy-daisy/internal/hub"
	"github.com/sofytk/lazy-daisy/internal/session"
	"github.com/sofytk/lazy-daisy/internal/types"
)

func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Telegram mini apps are served from t.me wrappers; origin is
			// enforced by initData validation upstream, not here.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := uuid.NewString()

		sess.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { sess.Inbox() <- session.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "StateSnapshot", Snapshot: &snap}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise just exit (session.Leave in defer).
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}

			cmd, ok := toSessionCommand(cm)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"unknown type"}`))
				continue
			}

			sess.Inbox() <- session.FromClient{Cmd: cmd}
		}
	}
}

func toSessionCommand(m types.ClientMessage) (session.Command, bool) {
	switch m.Type {
	case "Pluck":
		return session.Command{Type: session.CmdPluck}, true
	case "NewRound":
		return session.Command{Type: session.CmdNewRound}, true
	case "BuySkin":
		return session.Command{Type: session.CmdBuySkin, SkinID: m.SkinID}, true
	case "SelectSkin":
		return session.Command{Type: session.CmdSelectSkin, SkinID: m.SkinID}, true
	case "SetTexts":
		return session.Command{Type: session.CmdSetTexts, Texts: m.Texts}, true
	case "SetPreset":
		return session.Command{Type: session.CmdSetPreset, PresetKey: m.PresetKey}, true
	case "CreatePayment":
		return session.Command{Type: session.CmdCreatePayment, Amount: m.Amount}, true
	case "PaymentDone":
		return session.Command{Type: session.CmdPaymentDone, Amount: m.Amount}, true
	default:
		return session.Command{}, false
	}
}
