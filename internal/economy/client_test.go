package economy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sofytk/lazy-daisy/internal/telegram"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	auth := telegram.NewWebApp("init-data-blob", "daisy_bot")
	return NewClient(srv.URL, auth, 2*time.Second), srv
}

func TestAuthenticate_SendsInitDataAndDecodesProfile(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			InitData string `json:"initData"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InitData != "init-data-blob" {
			t.Errorf("init data not forwarded: %+v err=%v", body, err)
		}
		json.NewEncoder(w).Encode(Profile{ID: 7, Balance: 100, CustomTexts: []string{"loves me", "loves me not"}})
	}))

	p, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.ID != 7 || p.Balance != 100 || len(p.CustomTexts) != 2 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		detail string
		want   Kind
	}{
		{400, "Cannot buy default skin", KindValidation},
		{400, "Insufficient balance", KindExhausted}, // the ledger's wire shape for an empty balance
		{400, "insufficient balance", KindExhausted},
		{401, "nope", KindUnauthorized},
		{403, "nope", KindUnauthorized},
		{402, "nope", KindExhausted},
		{404, "Skin not found", KindConflict},
		{409, "Skin already owned", KindConflict},
		{500, "nope", KindTransient},
		{503, "nope", KindTransient},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			json.NewEncoder(w).Encode(map[string]string{"detail": tc.detail})
		}))
		_, err := c.BuySkin(context.Background(), 2)
		if err == nil {
			t.Fatalf("status %d: want error", tc.status)
		}
		if got := KindOf(err); got != tc.want {
			t.Fatalf("status %d %q: want kind %v, got %v (%v)", tc.status, tc.detail, tc.want, got, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != tc.detail {
			t.Fatalf("status %d: detail not propagated: %v", tc.status, err)
		}
	}
}

func TestGet_RetriesOnceOnTransient(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"remaining": 3})
	}))

	n, err := c.GetQuota(context.Background())
	if err != nil {
		t.Fatalf("get quota: %v", err)
	}
	if n != 3 || attempts != 2 {
		t.Fatalf("want remaining=3 after 2 attempts, got %d after %d", n, attempts)
	}
}

func TestMutation_NeverRetried(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := c.BuySkin(context.Background(), 2); err == nil {
		t.Fatal("want error")
	}
	if attempts != 1 {
		t.Fatalf("mutating call retried: %d attempts", attempts)
	}
}

// fakeLedger keeps just enough state for the purchase scenario.
type fakeLedger struct {
	balance int
	owned   map[int]bool
	price   map[int]int
}

func (f *fakeLedger) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/skins/buy", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SkinID int `json:"skin_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		price, ok := f.price[body.SkinID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Skin not found"})
			return
		}
		if f.owned[body.SkinID] {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Skin already owned"})
			return
		}
		if f.balance < price {
			// The ledger reports this as a plain 400 with the detail string.
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Insufficient balance"})
			return
		}
		f.balance -= price
		f.owned[body.SkinID] = true
		json.NewEncoder(w).Encode(map[string]int{"new_balance": f.balance})
	})
	return mux
}

func TestBuySkin_InsufficientThenTopUpThenRetry(t *testing.T) {
	ledger := &fakeLedger{balance: 10, owned: map[int]bool{}, price: map[int]int{2: 45}}
	c, _ := newTestClient(t, ledger.handler())

	_, err := c.BuySkin(context.Background(), 2)
	if !IsExhausted(err) {
		t.Fatalf("want exhausted, got %v", err)
	}
	if len(ledger.owned) != 0 || ledger.balance != 10 {
		t.Fatalf("failed purchase mutated ledger: %+v", ledger)
	}

	// Payment confirmed: balance topped up, retry succeeds.
	ledger.balance += 50
	newBalance, err := c.BuySkin(context.Background(), 2)
	if err != nil {
		t.Fatalf("retry after top-up: %v", err)
	}
	if newBalance != 15 || !ledger.owned[2] {
		t.Fatalf("unexpected post-purchase state: balance=%d owned=%v", newBalance, ledger.owned)
	}
}

func TestCreatePayment(t *testing.T) {
	var gotPayload string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Amount  int    `json:"amount"`
			Payload string `json:"payload"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotPayload = body.Payload
		json.NewEncoder(w).Encode(map[string]Invoice{"invoice": {Link: "https://t.me/invoice/x", Payload: body.Payload}})
	}))

	inv, err := c.CreatePayment(context.Background(), 50, "")
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if inv.Link == "" || !strings.HasPrefix(gotPayload, "balance_") {
		t.Fatalf("unexpected invoice %+v payload %q", inv, gotPayload)
	}

	// Below the gateway minimum: rejected locally, no request goes out.
	gotPayload = ""
	if _, err := c.CreatePayment(context.Background(), MinPaymentAmount-1, ""); KindOf(err) != KindValidation {
		t.Fatalf("amount below minimum should fail validation, got %v", err)
	}
	if _, err := c.CreatePayment(context.Background(), 0, ""); KindOf(err) != KindValidation {
		t.Fatalf("zero amount should fail validation, got %v", err)
	}
	if gotPayload != "" {
		t.Fatalf("rejected payment reached the gateway: payload %q", gotPayload)
	}
}

func TestValidateTexts(t *testing.T) {
	cases := []struct {
		name  string
		texts []string
		ok    bool
	}{
		{"nil", nil, false},
		{"one", []string{"loves me"}, true},
		{"three", []string{"a", "b", "c"}, true},
		{"four", []string{"a", "b", "c", "d"}, false},
		{"blank entry", []string{"a", "  "}, false},
		{"too long", []string{strings.Repeat("x", 21)}, false},
		{"twenty chars ok", []string{strings.Repeat("x", 20)}, true},
		{"multibyte within limit", []string{strings.Repeat("л", 20)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTexts(tc.texts)
			if tc.ok && err != nil {
				t.Fatalf("want ok, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("want validation error")
				}
				if KindOf(err) != KindValidation {
					t.Fatalf("want validation kind, got %v", err)
				}
			}
		})
	}
}
