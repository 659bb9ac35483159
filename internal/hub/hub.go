package hub

import (
	"context"

	"github.com/sofytk/lazy-daisy/internal/session"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Code  string
	Deps  session.Deps
	Reply chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

type RemoveSession struct {
	Code string
}

// RefreshAll asks every live session to re-read its server state. Posted by
// the periodic scheduler.
type RefreshAll struct{}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (RefreshAll) isHubMsg()    {}
func (ShutdownHub) isHubMsg()   {}

// Hub is the registry of live sessions, one per connected user. Like the
// sessions it owns, it is an actor: a single goroutine reacting to inbox
// messages, so the map needs no lock.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if sess := h.sessions[msg.Code]; sess != nil {
					msg.Reply <- sess
					break
				}
				sess := session.NewSession(h.ctx, msg.Deps)
				h.sessions[msg.Code] = sess
				msg.Reply <- sess

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case RemoveSession:
				if sess := h.sessions[msg.Code]; sess != nil {
					sess.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.Code)
				}

			case RefreshAll:
				for _, sess := range h.sessions {
					select {
					case sess.Inbox() <- session.RefreshState{}:
					default:
						// Session inbox is saturated; skip it this cycle.
					}
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, sess := range h.sessions {
		sess.Inbox() <- session.Shutdown{}
	}
	clear(h.sessions)
	h.cancel()
}
