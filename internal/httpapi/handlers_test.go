package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sofytk/lazy-daisy/internal/config"
	"github.com/sofytk/lazy-daisy/internal/economy"
	"github.com/sofytk/lazy-daisy/internal/history"
	"github.com/sofytk/lazy-daisy/internal/hub"
	"github.com/sofytk/lazy-daisy/internal/journal"
	"github.com/sofytk/lazy-daisy/internal/session"
)

type stubLedger struct{}

func (stubLedger) Authenticate(context.Context) (*economy.Profile, error) {
	return &economy.Profile{ID: 1}, nil
}
func (stubLedger) GetQuota(context.Context) (int, error)      { return 3, nil }
func (stubLedger) SetQuota(context.Context, int) (int, error) { return 3, nil }
func (stubLedger) GetSkins(context.Context) ([]economy.Skin, error) {
	return nil, nil
}
func (stubLedger) BuySkin(context.Context, int) (int, error) { return 0, nil }
func (stubLedger) SelectSkin(context.Context, int) error     { return nil }
func (stubLedger) UpdateCustomTexts(_ context.Context, texts []string) ([]string, error) {
	return texts, nil
}
func (stubLedger) CreatePayment(context.Context, int, string) (*economy.Invoice, error) {
	return &economy.Invoice{}, nil
}

type stubHistory struct{}

func (stubHistory) SaveResult(_ context.Context, text string) (*history.ResultRecord, error) {
	return &history.ResultRecord{Text: text}, nil
}
func (stubHistory) SetPreset(_ context.Context, preset history.Preset) (string, error) {
	return preset.Key, nil
}

func TestDeleteSession_EvictsRegistryAndBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := hub.NewHub(ctx)
	defer func() { h.Inbox() <- hub.ShutdownHub{} }()
	api := NewAPI(h, &config.Config{}, journal.NewNoopJournal())
	router := api.SetupRoutes()

	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.CreateSession{
		Code: "ABC123",
		Deps: session.Deps{
			Ledger:         stubLedger{},
			History:        stubHistory{},
			Profile:        &economy.Profile{ID: 1},
			QuotaRemaining: 3,
		},
		Reply: reply,
	}
	if <-reply == nil {
		t.Fatal("session not created")
	}
	api.mu.Lock()
	api.backends["ABC123"] = &backend{}
	api.mu.Unlock()

	req := httptest.NewRequest(http.MethodDelete, "/sessions/ABC123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", rec.Code)
	}

	api.mu.Lock()
	_, still := api.backends["ABC123"]
	api.mu.Unlock()
	if still {
		t.Fatal("backend entry not evicted")
	}

	// The hub processes its inbox in order: the removal posted by the
	// handler is applied before this lookup.
	h.Inbox() <- hub.GetSession{Code: "ABC123", Reply: reply}
	if <-reply != nil {
		t.Fatal("session still registered after delete")
	}
}
