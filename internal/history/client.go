package history

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

	"github.com/sofytk/lazy-daisy/internal/telegram"
)

// PageSize is the fixed page length for all history reads.
const PageSize = 20

type ResultRecord struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type PurchaseRecord struct {
	ID        int64     `json:"id"`
	ItemType  string    `json:"item_type"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type Preset struct {
	Key   string   `json:"key,omitempty"`
	Texts []string `json:"texts"`
}

// Client reads the purchase/result logs and writes the active preset. Both
// logs are append-only and served newest first; pages are requested with
// strictly increasing offsets and concatenated by the caller.
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

// SaveResult appends one completed-round outcome. Called exactly once per
// completed round.
func (c *Client) SaveResult(ctx context.Context, text string) (*ResultRecord, error) {
	var rec ResultRecord
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, "/api/history/results", nil, body, &rec); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	return &rec, nil
}

func (c *Client) ListResults(ctx context.Context, offset, limit int) ([]ResultRecord, error) {
	var out struct {
		Results []ResultRecord `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history/results", pageQuery(offset, limit), nil, &out); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return out.Results, nil
}

func (c *Client) ListPurchases(ctx context.Context, offset, limit int) ([]PurchaseRecord, error) {
	var out struct {
		Purchases []PurchaseRecord `json:"purchases"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history/purchases", pageQuery(offset, limit), nil, &out); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return out.Purchases, nil
}

// SetPreset stores the active outcome-pool configuration and returns the
// stored key.
func (c *Client) SetPreset(ctx context.Context, preset Preset) (string, error) {
	var out struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/presets", nil, preset, &out); err != nil {
		return "", fmt.Errorf("set preset: %w", err)
	}
	return out.Key, nil
}

// CollectResults walks the result log page by page until a short page.
func (c *Client) CollectResults(ctx context.Context) ([]ResultRecord, error) {
	var all []ResultRecord
	for offset := 0; ; offset += PageSize {
		page, err := c.ListResults(ctx, offset, PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
	}
}

// CollectPurchases walks the purchase log page by page until a short page.
func (c *Client) CollectPurchases(ctx context.Context) ([]PurchaseRecord, error) {
	var all []PurchaseRecord
	for offset := 0; ; offset += PageSize {
		page, err := c.ListPurchases(ctx, offset, PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
	}
}

func pageQuery(offset, limit int) url.Values {
	return url.Values{
		"offset": {fmt.Sprint(offset)},
		"limit":  {fmt.Sprint(limit)},
	}
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
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d, body: %s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
