package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sofytk/lazy-daisy/internal/telegram"
)

// resultLog serves a fixed-size result log, newest first.
func resultLog(total int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		var page []ResultRecord
		for i := offset; i < offset+limit && i < total; i++ {
			// Newest first: id descends with offset.
			page = append(page, ResultRecord{
				ID:        int64(total - i),
				Text:      fmt.Sprintf("result %d", total-i),
				CreatedAt: time.Unix(int64(total-i), 0).UTC(),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": page})
	})
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, telegram.NewWebApp("blob", "daisy_bot"), 2*time.Second)
}

func TestListResults_PageLengths(t *testing.T) {
	c := newTestClient(t, resultLog(45))

	cases := []struct {
		offset, wantLen int
	}{
		{0, 20},
		{20, 20},
		{40, 5},
		{60, 0},
	}
	for _, tc := range cases {
		page, err := c.ListResults(context.Background(), tc.offset, PageSize)
		if err != nil {
			t.Fatalf("offset %d: %v", tc.offset, err)
		}
		if len(page) != tc.wantLen {
			t.Fatalf("offset %d: want %d records, got %d", tc.offset, tc.wantLen, len(page))
		}
	}
}

func TestCollectResults_NoDuplicatesNoGaps(t *testing.T) {
	c := newTestClient(t, resultLog(45))

	all, err := c.CollectResults(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(all) != 45 {
		t.Fatalf("want 45 records, got %d", len(all))
	}
	// Newest first with no duplicates or gaps: ids run 45..1.
	for i, rec := range all {
		if want := int64(45 - i); rec.ID != want {
			t.Fatalf("record %d: want id %d, got %d", i, want, rec.ID)
		}
	}
}

func TestSaveResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("want POST, got %s", r.Method)
		}
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(ResultRecord{ID: 1, Text: body.Text, CreatedAt: time.Now().UTC()})
	}))

	rec, err := c.SaveResult(context.Background(), "loves me")
	if err != nil {
		t.Fatalf("save result: %v", err)
	}
	if rec.ID != 1 || rec.Text != "loves me" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestSetPreset(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Preset
		json.NewDecoder(r.Body).Decode(&p)
		if len(p.Texts) == 0 {
			t.Errorf("preset texts missing")
		}
		json.NewEncoder(w).Encode(map[string]string{"key": p.Key})
	}))

	key, err := c.SetPreset(context.Background(), Preset{Key: "classic", Texts: []string{"loves me", "loves me not"}})
	if err != nil {
		t.Fatalf("set preset: %v", err)
	}
	if key != "classic" {
		t.Fatalf("want key classic, got %q", key)
	}
}
