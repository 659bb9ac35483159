package session

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/sofytk/lazy-daisy/internal/economy"
	"github.com/sofytk/lazy-daisy/internal/history"
	"github.com/sofytk/lazy-daisy/internal/journal"
	"github.com/sofytk/lazy-daisy/internal/presets"
	"github.com/sofytk/lazy-daisy/internal/quota"
	"github.com/sofytk/lazy-daisy/internal/round"
	"github.com/sofytk/lazy-daisy/internal/telegram"
)

// Ledger is the slice of the economy client the session drives.
type Ledger interface {
	Authenticate(ctx context.Context) (*economy.Profile, error)
	GetQuota(ctx context.Context) (int, error)
	SetQuota(ctx context.Context, value int) (int, error)
	GetSkins(ctx context.Context) ([]economy.Skin, error)
	BuySkin(ctx context.Context, skinID int) (int, error)
	SelectSkin(ctx context.Context, skinID int) error
	UpdateCustomTexts(ctx context.Context, texts []string) ([]string, error)
	CreatePayment(ctx context.Context, amount int, description string) (*economy.Invoice, error)
}

// HistoryStore persists round results and the active preset.
type HistoryStore interface {
	SaveResult(ctx context.Context, text string) (*history.ResultRecord, error)
	SetPreset(ctx context.Context, preset history.Preset) (string, error)
}

type Deps struct {
	Ledger  Ledger
	History HistoryStore
	Journal journal.Journal
	Host    telegram.Capability

	Profile        *economy.Profile
	QuotaRemaining int
	Skins          []economy.Skin

	SettleDelay time.Duration
	DaisyPrice  int
	RNG         func() float64
}

// Session owns one user's round state machine, quota reconciler and profile
// cache. All of it is mutated on a single goroutine reacting to inbox
// messages; async work posts completion messages back instead of touching
// state directly.
type Session struct {
	inbox   chan Msg
	deps    Deps
	rng     func() float64
	version int

	round round.State
	gen   int // round generation; stale async continuations are dropped
	quota *quota.Reconciler

	profile *economy.Profile
	skins   []economy.Skin

	paymentRequired bool
	invoiceLink     string
	notice          string

	settleTimer *time.Timer
	clients     map[string]chan Snapshot
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewSession(parent context.Context, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)

	if deps.RNG == nil {
		deps.RNG = rand.Float64
	}
	if deps.SettleDelay <= 0 {
		deps.SettleDelay = time.Second
	}
	if deps.DaisyPrice <= 0 {
		deps.DaisyPrice = 50
	}
	if deps.Journal == nil {
		deps.Journal = journal.NewNoopJournal()
	}

	s := &Session{
		inbox:   make(chan Msg, 64),
		deps:    deps,
		rng:     deps.RNG,
		round:   round.NewState(presets.ResolvePool(deps.Profile.PresetKey, deps.Profile.CustomTexts)),
		quota:   quota.NewReconciler(deps.QuotaRemaining),
		profile: deps.Profile,
		skins:   deps.Skins,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	// Play screen opens with a round already running, quota permitting.
	s.startRound()

	go s.loop()
	return s
}

// Inbox exposes the message channel to the WS layer, the scheduler and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Leave:
				delete(s.clients, msg.ClientID)

			case FromClient:
				s.handleCommand(msg.Cmd)

			case RefreshState:
				s.fetchQuota()
				s.fetchProfile()

			case settleFired:
				s.handleSettle(msg)

			case spendConfirmed:
				s.quota.ConfirmSpend(msg.err)
				if msg.err == nil {
					s.quota.Refresh(msg.remaining)
				}
				s.broadcast()

			case resultSaved:
				if msg.err != nil {
					// A lost result does not block further play.
					log.Printf("[WARN] result persistence failed: %v", msg.err)
				}

			case profileFetched:
				if msg.err != nil {
					log.Printf("[WARN] profile refresh failed: %v", msg.err)
					s.notice = noticeFor(msg.err)
					s.broadcast()
					break
				}
				s.profile = msg.profile
				if msg.skins != nil {
					s.skins = msg.skins
				}
				s.broadcast()

			case quotaFetched:
				if msg.err != nil {
					log.Printf("[WARN] quota refresh failed: %v", msg.err)
					break
				}
				s.quota.Refresh(msg.remaining)
				if s.quota.Remaining() > 0 {
					s.paymentRequired = false
				}
				s.broadcast()

			case paymentCreated:
				if msg.err != nil {
					s.notice = noticeFor(msg.err)
					s.broadcast()
					break
				}
				s.invoiceLink = msg.invoice.Link
				s.broadcast()

			case mutationDone:
				s.handleMutationDone(msg)

			case GetState:
				msg.Reply <- View{
					Version:         s.version,
					NumClients:      len(s.clients),
					Round:           s.round,
					Quota:           s.quota.State(),
					Profile:         *s.profile,
					PaymentRequired: s.paymentRequired,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleCommand(cmd Command) {
	switch cmd.Type {
	case CmdPluck:
		_, next, err := round.Apply(s.round, round.Command{Type: round.CmdPluck}, s.rng)
		if err != nil {
			// Transition guards are synchronous; the UI should never let
			// this happen, so it is logged rather than surfaced.
			log.Printf("[WARN] rejected pluck: %v", err)
			return
		}
		s.round = next
		s.armSettleTimer()
		s.broadcast()

	case CmdNewRound:
		s.startRound()
		s.broadcast()

	case CmdBuySkin:
		price := s.skinPrice(cmd.SkinID)
		skinID := cmd.SkinID
		go func() {
			_, err := s.deps.Ledger.BuySkin(s.ctx, skinID)
			s.post(mutationDone{what: "buy_skin", amount: price, err: err})
		}()

	case CmdSelectSkin:
		skinID := cmd.SkinID
		go func() {
			err := s.deps.Ledger.SelectSkin(s.ctx, skinID)
			s.post(mutationDone{what: "select_skin", err: err})
		}()

	case CmdSetTexts:
		if err := economy.ValidateTexts(cmd.Texts); err != nil {
			s.notice = noticeFor(err)
			s.broadcast()
			return
		}
		texts := cmd.Texts
		go func() {
			_, err := s.deps.Ledger.UpdateCustomTexts(s.ctx, texts)
			s.post(mutationDone{what: "set_texts", err: err})
		}()

	case CmdSetPreset:
		preset, ok := presets.ByKey(cmd.PresetKey)
		if !ok {
			s.notice = "unknown preset"
			s.broadcast()
			return
		}
		go func() {
			_, err := s.deps.History.SetPreset(s.ctx, history.Preset{Key: preset.Key, Texts: preset.Texts})
			s.post(mutationDone{what: "set_preset", err: err})
		}()

	case CmdCreatePayment:
		amount := cmd.Amount
		if amount <= 0 {
			amount = s.deps.DaisyPrice
		}
		go func() {
			invoice, err := s.deps.Ledger.CreatePayment(s.ctx, amount, "")
			s.post(paymentCreated{invoice: invoice, err: err})
		}()

	case CmdPaymentDone:
		s.quota.Grant(1)
		s.paymentRequired = false
		amount := cmd.Amount
		if amount <= 0 {
			amount = s.deps.DaisyPrice
		}
		if err := s.deps.Journal.RecordPurchase("daisy", amount); err != nil {
			log.Printf("[WARN] journal purchase: %v", err)
		}
		s.fetchQuota()
		s.fetchProfile()
		s.broadcast()

	default:
		log.Printf("[WARN] unknown command %q", cmd.Type)
	}
}

// startRound begins (or restarts) a round, guarding on quota availability:
// with nothing left to charge, the player is routed to the payment flow
// instead of a round that could never be settled.
func (s *Session) startRound() {
	if s.round.Phase == round.PhaseActive || s.round.Phase == round.PhaseResolving {
		return
	}
	if s.quota.Remaining() == 0 {
		s.paymentRequired = true
		return
	}

	cmdType := round.CmdStart
	if s.round.Phase == round.PhaseGameOver {
		cmdType = round.CmdReset
	}
	s.round.Pool = presets.ResolvePool(s.profile.PresetKey, s.profile.CustomTexts)

	_, next, err := round.Apply(s.round, round.Command{
		Type:        cmdType,
		TotalPetals: round.RandomTotal(s.rng),
	}, s.rng)
	if err != nil {
		log.Printf("[WARN] round start rejected: %v", err)
		return
	}
	s.round = next
	s.gen++
	s.paymentRequired = false
}

func (s *Session) armSettleTimer() {
	if s.settleTimer != nil {
		s.settleTimer.Stop()
	}
	gen := s.gen
	s.settleTimer = time.AfterFunc(s.deps.SettleDelay, func() {
		s.post(settleFired{gen: gen})
	})
}

func (s *Session) handleSettle(msg settleFired) {
	if msg.gen != s.gen {
		// The round this timer belonged to is gone; applying it would leak
		// a stale outcome into a fresh round.
		return
	}
	events, next, err := round.Apply(s.round, round.Command{Type: round.CmdSettle}, s.rng)
	if err != nil {
		log.Printf("[WARN] settle rejected: %v", err)
		return
	}
	s.round = next

	for _, evt := range events {
		if evt.Type == round.EvtRoundCompleted {
			s.completeRound(evt.Outcome)
		}
	}
	s.broadcast()
}

// completeRound is the canonical game-over sequence: the spend happens
// exactly once, here, and result persistence is suppressed when the spend
// cannot be charged.
func (s *Session) completeRound(outcomeText string) {
	_, err := s.quota.Spend()
	if errors.Is(err, quota.ErrExhausted) {
		s.paymentRequired = true
		return
	}
	if err != nil {
		log.Printf("[WARN] spend rejected: %v", err)
		return
	}

	value := s.quota.Remaining()
	go func() {
		remaining, err := s.deps.Ledger.SetQuota(s.ctx, value)
		s.post(spendConfirmed{remaining: remaining, err: err})
	}()

	go func() {
		_, err := s.deps.History.SaveResult(s.ctx, outcomeText)
		s.post(resultSaved{err: err})
	}()

	if err := s.deps.Journal.RecordResult(outcomeText); err != nil {
		log.Printf("[WARN] journal result: %v", err)
	}
}

func (s *Session) handleMutationDone(msg mutationDone) {
	if msg.err != nil {
		switch economy.KindOf(msg.err) {
		case economy.KindExhausted:
			// Not enough currency: offer the payment flow, not an error dialog.
			s.paymentRequired = true
		default:
			s.notice = noticeFor(msg.err)
		}
		log.Printf("[WARN] %s failed: %v", msg.what, msg.err)
		s.broadcast()
		return
	}

	if msg.what == "buy_skin" {
		if err := s.deps.Journal.RecordPurchase("skin", msg.amount); err != nil {
			log.Printf("[WARN] journal purchase: %v", err)
		}
	}

	// Server-authoritative cache: refetch instead of patching locally.
	s.fetchProfile()
}

func (s *Session) fetchProfile() {
	go func() {
		profile, err := s.deps.Ledger.Authenticate(s.ctx)
		if err != nil {
			s.post(profileFetched{err: err})
			return
		}
		skins, err := s.deps.Ledger.GetSkins(s.ctx)
		if err != nil {
			log.Printf("[WARN] skins refresh failed: %v", err)
		}
		s.post(profileFetched{profile: profile, skins: skins})
	}()
}

func (s *Session) fetchQuota() {
	go func() {
		remaining, err := s.deps.Ledger.GetQuota(s.ctx)
		s.post(quotaFetched{remaining: remaining, err: err})
	}()
}

func (s *Session) skinPrice(skinID int) int {
	for _, skin := range s.skins {
		if skin.ID == skinID {
			return skin.Price
		}
	}
	return 0
}

// post delivers an internal message unless the session is shutting down.
func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Version:         s.version,
		Round:           s.round,
		QuotaRemaining:  s.quota.Remaining(),
		Balance:         s.profile.Balance,
		CustomTexts:     s.profile.CustomTexts,
		PresetKey:       s.profile.PresetKey,
		Skins:           s.skins,
		PaymentRequired: s.paymentRequired,
		InvoiceLink:     s.invoiceLink,
		Notice:          s.notice,
	}
	if s.deps.Host != nil {
		snap.ShareLink = s.deps.Host.ShareLink(s.profile.ID)
	}
	return snap
}

func (s *Session) broadcast() {
	s.version++
	snap := s.snapshot()
	// One-shot fields are consumed by this broadcast.
	s.invoiceLink = ""
	s.notice = ""

	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) shutdown() {
	if s.settleTimer != nil {
		s.settleTimer.Stop()
	}
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func noticeFor(err error) string {
	switch economy.KindOf(err) {
	case economy.KindTransient:
		return "network trouble, try again"
	case economy.KindUnauthorized:
		return "session expired, reopen the app"
	default:
		var apiErr *economy.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "something went wrong"
	}
}
