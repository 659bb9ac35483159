package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/sofytk/lazy-daisy/internal/config"
	"github.com/sofytk/lazy-daisy/internal/economy"
	"github.com/sofytk/lazy-daisy/internal/history"
	"github.com/sofytk/lazy-daisy/internal/hub"
	"github.com/sofytk/lazy-daisy/internal/journal"
	"github.com/sofytk/lazy-daisy/internal/presets"
	"github.com/sofytk/lazy-daisy/internal/session"
	"github.com/sofytk/lazy-daisy/internal/telegram"
)

// API wires the HTTP surface to the hub. Each created session keeps its
// authenticated ledger/history clients here so the REST endpoints (history,
// referrals) can reuse them without going back through the session actor.
type API struct {
	hub     *hub.Hub
	cfg     *config.Config
	journal journal.Journal

	mu       sync.Mutex
	backends map[string]*backend
}

type backend struct {
	econ *economy.Client
	hist *history.Client
	host telegram.Capability
}

func NewAPI(h *hub.Hub, cfg *config.Config, jnl journal.Journal) *API {
	return &API{
		hub:      h,
		cfg:      cfg,
		journal:  jnl,
		backends: make(map[string]*backend),
	}
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateSession authenticates the launch payload against the ledger, pulls
// the starting profile and quota, and registers a session for it.
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitData string `json:"init_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		http.Error(w, "missing init_data", http.StatusBadRequest)
		return
	}

	host := telegram.NewWebApp(req.InitData, a.cfg.Telegram.BotName)
	econ := economy.NewClient(a.cfg.Ledger.BaseURL, host, a.cfg.LedgerTimeout())
	hist := history.NewClient(a.cfg.Ledger.BaseURL, host, a.cfg.LedgerTimeout())

	profile, err := econ.Authenticate(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	remaining, err := econ.GetQuota(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	skins, err := econ.GetSkins(r.Context())
	if err != nil {
		// The shop can load later; the game itself does not need skins.
		log.Printf("[WARN] skins fetch failed: %v", err)
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			http.Error(w, "failed to generate code", http.StatusInternalServerError)
			return
		}
		reply := make(chan *session.Session, 1)
		a.hub.Inbox() <- hub.GetSession{Code: c, Reply: reply}
		if <-reply == nil {
			code = c
			break
		}
		log.Printf("[WARN] collision on code, regenerating")
	}

	reply := make(chan *session.Session, 1)
	a.hub.Inbox() <- hub.CreateSession{
		Code: code,
		Deps: session.Deps{
			Ledger:         econ,
			History:        hist,
			Journal:        a.journal,
			Host:           host,
			Profile:        profile,
			QuotaRemaining: remaining,
			Skins:          skins,
			SettleDelay:    a.cfg.SettleDelay(),
			DaisyPrice:     a.cfg.Game.DaisyPrice,
		},
		Reply: reply,
	}
	if <-reply == nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	a.backends[code] = &backend{econ: econ, hist: hist, host: host}
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, struct {
		Code      string `json:"code"`
		ShareLink string `json:"share_link"`
	}{Code: code, ShareLink: host.ShareLink(profile.ID)})
}

// DeleteSession shuts the session down and evicts its clients from the
// registry. The mini-app calls this on close; without it the backend map
// would grow for the life of the process.
func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	a.hub.Inbox() <- hub.RemoveSession{Code: code}
	a.mu.Lock()
	delete(a.backends, code)
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// ListResults serves the round history for a session, newest first. When the
// remote store is unreachable the local journal backs the first page so the
// player still sees something.
func (a *API) ListResults(w http.ResponseWriter, r *http.Request) {
	be, ok := a.backendFor(r)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	offset, limit := pageParams(r)

	results, err := be.hist.ListResults(r.Context(), offset, limit)
	if err != nil {
		log.Printf("[WARN] remote history unavailable, serving journal: %v", err)
		if offset > 0 {
			httpError(w, err)
			return
		}
		results, err = a.journal.RecentResults(limit)
		if err != nil {
			httpError(w, err)
			return
		}
	}
	if results == nil {
		results = []history.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, struct {
		Results []history.ResultRecord `json:"results"`
	}{Results: results})
}

func (a *API) ListPurchases(w http.ResponseWriter, r *http.Request) {
	be, ok := a.backendFor(r)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	offset, limit := pageParams(r)

	purchases, err := be.hist.ListPurchases(r.Context(), offset, limit)
	if err != nil {
		log.Printf("[WARN] remote history unavailable, serving journal: %v", err)
		if offset > 0 {
			httpError(w, err)
			return
		}
		purchases, err = a.journal.RecentPurchases(limit)
		if err != nil {
			httpError(w, err)
			return
		}
	}
	if purchases == nil {
		purchases = []history.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, struct {
		Purchases []history.PurchaseRecord `json:"purchases"`
	}{Purchases: purchases})
}

func (a *API) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Presets []presets.Preset `json:"presets"`
	}{Presets: presets.Catalog})
}

func (a *API) ListReferrals(w http.ResponseWriter, r *http.Request) {
	be, ok := a.backendFor(r)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	referrals, err := be.econ.GetReferrals(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	if referrals == nil {
		referrals = []economy.Referral{}
	}
	writeJSON(w, http.StatusOK, struct {
		Referrals []economy.Referral `json:"referrals"`
	}{Referrals: referrals})
}

func (a *API) ApplyReferral(w http.ResponseWriter, r *http.Request) {
	be, ok := a.backendFor(r)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	var req struct {
		ReferralCode string `json:"referral_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReferralCode == "" {
		http.Error(w, "missing referral_code", http.StatusBadRequest)
		return
	}
	bonus, err := be.econ.ApplyReferral(r.Context(), req.ReferralCode)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Bonus int `json:"bonus"`
	}{Bonus: bonus})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *API) backendFor(r *http.Request) (*backend, bool) {
	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	be, ok := a.backends[code]
	return be, ok
}

func pageParams(r *http.Request) (offset, limit int) {
	limit = history.PageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= history.PageSize {
		limit = v
	}
	return offset, limit
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// httpError maps a ledger failure onto a status the mini-app can act on.
func httpError(w http.ResponseWriter, err error) {
	var apiErr *economy.APIError
	msg := "upstream error"
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}

	switch economy.KindOf(err) {
	case economy.KindUnauthorized:
		http.Error(w, msg, http.StatusUnauthorized)
	case economy.KindExhausted:
		http.Error(w, msg, http.StatusPaymentRequired)
	case economy.KindValidation:
		http.Error(w, msg, http.StatusBadRequest)
	case economy.KindConflict:
		http.Error(w, msg, http.StatusConflict)
	default:
		http.Error(w, msg, http.StatusBadGateway)
	}
}
