package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"Will Trump win the election?", CategoryPolitics},
		{"Government shutdown before December?", CategoryPolitics},
		{"Will the Fed cut interest rates in March?", CategoryFinancial},
		{"Another bank failure this quarter?", CategoryFinancial},
		{"Will Bitcoin hit $100k?", CategoryExcluded},
		{"Who wins the Super Bowl?", CategoryExcluded},
		{"Will it rain in Paris tomorrow?", CategoryOther},
		// Exclusions beat politics: a senate market about crypto is excluded.
		{"Will a crypto bill pass the Senate?", CategoryExcluded},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := Categorize(tt.question); got != tt.want {
				t.Errorf("Categorize(%q) = %s, want %s", tt.question, got, tt.want)
			}
		})
	}
}

const marketsBody = `[
	{
		"question": "Will the Fed cut interest rates in March?",
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.32\", \"0.68\"]",
		"clobTokenIds": "[\"111\", \"222\"]"
	},
	{
		"question": "Broken market",
		"outcomes": "not json",
		"outcomePrices": "[]",
		"clobTokenIds": "[\"333\"]"
	}
]`

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(srv.URL, 5*time.Second, 3)
	c.retryBase = time.Millisecond
	return c, srv
}

func TestResolveAssetIDs(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("clob_token_ids"); got == "" {
			t.Errorf("missing clob_token_ids query param")
		}
		fmt.Fprint(w, marketsBody)
	})
	defer srv.Close()

	resolved, err := c.ResolveAssetIDs(context.Background(), []string{"111", "222", "999"})
	if err != nil {
		t.Fatalf("ResolveAssetIDs: %v", err)
	}

	yes, ok := resolved["111"]
	if !ok {
		t.Fatal("token 111 not resolved")
	}
	if yes.Outcome != "Yes" || yes.Price != 0.32 {
		t.Errorf("token 111 = %+v", yes)
	}
	if yes.Category != CategoryFinancial {
		t.Errorf("category = %s, want %s", yes.Category, CategoryFinancial)
	}

	no, ok := resolved["222"]
	if !ok || no.Outcome != "No" || no.Price != 0.68 {
		t.Errorf("token 222 = %+v (ok=%v)", no, ok)
	}

	// Unknown ids stay unresolved (best-effort contract).
	if _, ok := resolved["999"]; ok {
		t.Error("token 999 should be absent")
	}
}

func TestResolveAssetIDsUsesCache(t *testing.T) {
	var calls atomic.Int32
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, marketsBody)
	})
	defer srv.Close()

	ctx := context.Background()
	if _, err := c.ResolveAssetIDs(ctx, []string{"111"}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := c.ResolveAssetIDs(ctx, []string{"111"}); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1 (second lookup should hit cache)", got)
	}
	if _, ok := c.Cached("111"); !ok {
		t.Error("token 111 should be cached")
	}
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, marketsBody)
	})
	defer srv.Close()

	resolved, err := c.ResolveAssetIDs(context.Background(), []string{"111"})
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if len(resolved) != 1 {
		t.Errorf("resolved = %d entries, want 1", len(resolved))
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestDoRequestGivesUp(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	if _, err := c.ResolveAssetIDs(context.Background(), []string{"111"}); err == nil {
		t.Error("expected error after exhausting retries")
	}
}
