package economy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sofytk/lazy-daisy/internal/telegram"
)

// Limits enforced before any network call, mirroring the ledger's own rules.
const (
	MaxCustomTexts   = 3
	MaxCustomTextLen = 20

	// Smallest top-up the payment gateway accepts, in rubles.
	MinPaymentAmount = 10
)

type Profile struct {
	ID             int64    `json:"id"`
	TgID           int64    `json:"tg_id"`
	Username       string   `json:"username,omitempty"`
	FirstName      string   `json:"first_name,omitempty"`
	LastName       string   `json:"last_name,omitempty"`
	Balance        int      `json:"balance"`
	ReferralsCount int      `json:"referrals_count"`
	CurrentSkinID  int      `json:"current_skin_id"`
	CustomTexts    []string `json:"custom_texts,omitempty"`
	PresetKey      string   `json:"preset_key,omitempty"`
}

type Skin struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default"`
	Owned     bool   `json:"owned"`
}

type Referral struct {
	ID          int64  `json:"id"`
	InvitedName string `json:"invited_name"`
	Rewarded    bool   `json:"rewarded"`
	CreatedAt   string `json:"created_at"`
}

type Invoice struct {
	Link    string `json:"invoice_link"`
	Payload string `json:"payload"`
}

// Client is the typed boundary to the ledger and payment collaborators.
// Reads are idempotent and retried once on transient failure; mutating calls
// are attempted exactly once so a failed purchase surfaces instead of
// double-charging. The client holds no state beyond its auth capability:
// after any successful mutation the caller refetches the full profile.
type Client struct {
	BaseURL string
	Auth    telegram.Capability
	Client  *http.Client
}

func NewClient(baseURL string, auth telegram.Capability, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Auth:    auth,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Authenticate exchanges the signed launch payload for the user profile.
// It doubles as the full profile refetch after mutations.
func (c *Client) Authenticate(ctx context.Context) (*Profile, error) {
	var p Profile
	body := map[string]string{"initData": c.Auth.InitData()}
	if err := c.do(ctx, http.MethodPost, "/api/auth", nil, body, &p); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return &p, nil
}

func (c *Client) GetBalance(ctx context.Context) (int, error) {
	var out struct {
		Balance int `json:"balance"`
	}
	if err := c.get(ctx, "/api/balance", nil, &out); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Balance, nil
}

func (c *Client) GetQuota(ctx context.Context) (int, error) {
	var out struct {
		Remaining int `json:"remaining"`
	}
	if err := c.get(ctx, "/api/daisies", nil, &out); err != nil {
		return 0, fmt.Errorf("get quota: %w", err)
	}
	return out.Remaining, nil
}

// SetQuota writes the spent-down value to the ledger and returns the
// server's view of the remainder.
func (c *Client) SetQuota(ctx context.Context, value int) (int, error) {
	var out struct {
		Remaining int `json:"remaining"`
	}
	body := map[string]int{"value": value}
	if err := c.do(ctx, http.MethodPost, "/api/daisies", nil, body, &out); err != nil {
		return 0, fmt.Errorf("set quota: %w", err)
	}
	return out.Remaining, nil
}

func (c *Client) GetSkins(ctx context.Context) ([]Skin, error) {
	var skins []Skin
	if err := c.get(ctx, "/api/skins", nil, &skins); err != nil {
		return nil, fmt.Errorf("get skins: %w", err)
	}
	return skins, nil
}

func (c *Client) BuySkin(ctx context.Context, skinID int) (newBalance int, err error) {
	var out struct {
		NewBalance int `json:"new_balance"`
	}
	body := map[string]int{"skin_id": skinID}
	if err := c.do(ctx, http.MethodPost, "/api/skins/buy", nil, body, &out); err != nil {
		return 0, fmt.Errorf("buy skin %d: %w", skinID, err)
	}
	return out.NewBalance, nil
}

func (c *Client) SelectSkin(ctx context.Context, skinID int) error {
	q := url.Values{"skin_id": {fmt.Sprint(skinID)}}
	if err := c.do(ctx, http.MethodPost, "/api/skins/select", q, nil, nil); err != nil {
		return fmt.Errorf("select skin %d: %w", skinID, err)
	}
	return nil
}

// UpdateCustomTexts replaces the outcome pool. Shape errors are rejected
// locally before any network call.
func (c *Client) UpdateCustomTexts(ctx context.Context, texts []string) ([]string, error) {
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}
	var out struct {
		Texts []string `json:"texts"`
	}
	body := map[string][]string{"texts": texts}
	if err := c.do(ctx, http.MethodPost, "/api/custom-texts", nil, body, &out); err != nil {
		return nil, fmt.Errorf("update custom texts: %w", err)
	}
	return out.Texts, nil
}

// CreatePayment asks the gateway for an invoice. The payload carries a
// client-generated key so a replayed callback can be deduplicated server-side.
func (c *Client) CreatePayment(ctx context.Context, amount int, description string) (*Invoice, error) {
	if amount < MinPaymentAmount {
		return nil, &APIError{Kind: KindValidation, Message: fmt.Sprintf("minimum amount is %d rubles", MinPaymentAmount)}
	}
	if description == "" {
		description = "Balance top-up"
	}
	body := map[string]any{
		"amount":      amount,
		"description": description,
		"payload":     "balance_" + uuid.NewString(),
	}
	var out struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/payments/create", nil, body, &out); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &out.Invoice, nil
}

func (c *Client) GetReferrals(ctx context.Context) ([]Referral, error) {
	var refs []Referral
	if err := c.get(ctx, "/api/referrals", nil, &refs); err != nil {
		return nil, fmt.Errorf("get referrals: %w", err)
	}
	return refs, nil
}

func (c *Client) ApplyReferral(ctx context.Context, code string) (bonus int, err error) {
	if code == "" {
		return 0, &APIError{Kind: KindValidation, Message: "referral code is empty"}
	}
	q := url.Values{"referral_code": {code}}
	var out struct {
		Bonus int `json:"bonus"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/referrals/apply", q, nil, &out); err != nil {
		return 0, fmt.Errorf("apply referral: %w", err)
	}
	return out.Bonus, nil
}

// ValidateTexts checks the 1-3 entries / 20 chars / non-empty rules.
func ValidateTexts(texts []string) error {
	if len(texts) == 0 {
		return &APIError{Kind: KindValidation, Message: "at least one text is required"}
	}
	if len(texts) > MaxCustomTexts {
		return &APIError{Kind: KindValidation, Message: fmt.Sprintf("at most %d texts allowed", MaxCustomTexts)}
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return &APIError{Kind: KindValidation, Message: "text cannot be empty"}
		}
		if len([]rune(text)) > MaxCustomTextLen {
			return &APIError{Kind: KindValidation, Message: fmt.Sprintf("text too long (max %d characters)", MaxCustomTextLen)}
		}
	}
	return nil
}

// get retries once on a transient failure; reads are idempotent.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	err := c.do(ctx, http.MethodGet, path, query, nil, out)
	if err != nil && KindOf(err) == KindTransient && ctx.Err() == nil {
		err = c.do(ctx, http.MethodGet, path, query, nil, out)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("initData", c.Auth.InitData())
	endpoint := c.BaseURL + path + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail struct {
			Detail string `json:"detail"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(raw, &detail); err != nil || detail.Detail == "" {
			detail.Detail = strings.TrimSpace(string(raw))
		}
		return &APIError{Kind: classify(resp.StatusCode, detail.Detail), Status: resp.StatusCode, Message: detail.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
