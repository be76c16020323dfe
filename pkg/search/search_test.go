package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arclabs561/webpipe/pkg/config"
)

func testConfig() *config.Config {
	return (&config.Config{}).WithDefaults()
}

func TestOrderAutoUsesConfiguredSubset(t *testing.T) {
	cfg := testConfig()
	cfg.Tavily.APIKey = "tk"
	cfg.SearXNG.Endpoint = "http://localhost:8080"
	r := NewRouter(cfg)

	order, err := r.Order(ProviderAuto, AutoModeFallback)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	want := []string{ProviderTavily, ProviderSearXNG}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestOrderAutoFirstKeepsOneProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Brave.APIKey = "bk"
	cfg.Tavily.APIKey = "tk"
	r := NewRouter(cfg)

	order, err := r.Order("", AutoModeFirst)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if len(order) != 1 || order[0] != ProviderBrave {
		t.Fatalf("order = %v, want [brave]", order)
	}
}

func TestOrderExplicitUnconfiguredProvider(t *testing.T) {
	r := NewRouter(testConfig())
	if _, err := r.Order(ProviderBrave, AutoModeFallback); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestOrderUnknownProvider(t *testing.T) {
	r := NewRouter(testConfig())
	if _, err := r.Order("bing", AutoModeFallback); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestOrderNothingConfigured(t *testing.T) {
	r := NewRouter(testConfig())
	if _, err := r.Order(ProviderAuto, AutoModeFallback); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestBraveSearchParsesResults(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"url":"https://example.com/a","title":"A","description":"first"},
			{"url":"https://example.com/b","title":"B","description":"second"}
		]}}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Brave.APIKey = "secret-token"
	cfg.Brave.Endpoint = srv.URL
	r := NewRouter(cfg)

	got, err := r.Search(context.Background(), Query{Query: "go testing", MaxResults: 5}, ProviderBrave, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotToken != "secret-token" {
		t.Fatalf("X-Subscription-Token = %q", gotToken)
	}
	if len(got) != 2 || got[0].URL != "https://example.com/a" || got[0].Provider != ProviderBrave {
		t.Fatalf("candidates = %+v", got)
	}
}

func TestTavilySearchSendsKeyInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"url":"https://example.org/x","title":"X","content":"snippet"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Tavily.APIKey = "tk"
	cfg.Tavily.Endpoint = srv.URL
	r := NewRouter(cfg)

	got, err := r.Search(context.Background(), Query{Query: "q"}, ProviderTavily, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Snippet != "snippet" {
		t.Fatalf("candidates = %+v", got)
	}
}

func TestSearchFallsBackToNextProvider(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer broken.Close()
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"url":"https://example.net/ok","title":"OK"}]}`))
	}))
	defer working.Close()

	cfg := testConfig()
	cfg.Brave.APIKey = "bk"
	cfg.Brave.Endpoint = broken.URL
	cfg.SearXNG.Endpoint = working.URL
	r := NewRouter(cfg)

	got, err := r.Search(context.Background(), Query{Query: "q", MaxResults: 3}, ProviderAuto, AutoModeFallback)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Provider != ProviderSearXNG {
		t.Fatalf("candidates = %+v", got)
	}
}

func TestSearchCapsResultCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"url":"https://e.com/1"},{"url":"https://e.com/2"},
			{"url":"https://e.com/3"},{"url":"https://e.com/4"}
		]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Tavily.APIKey = "tk"
	cfg.Tavily.Endpoint = srv.URL
	r := NewRouter(cfg)

	got, err := r.Search(context.Background(), Query{Query: "q", MaxResults: 2}, ProviderTavily, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	cfg := testConfig()
	cfg.Tavily.APIKey = "tk"
	r := NewRouter(cfg)
	if _, err := r.Search(context.Background(), Query{Query: "  "}, "", ""); err == nil {
		t.Fatal("expected error for empty query")
	}
}
