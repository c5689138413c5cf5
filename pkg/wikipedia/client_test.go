package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/summary/"):
			title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
			switch title {
			case "Shanghai":
				json.NewEncoder(w).Encode(map[string]any{
					"title":   "Shanghai",
					"extract": "Shanghai is a direct-administered municipality of China.",
					"content_urls": map[string]any{
						"desktop": map[string]any{"page": "https://en.wikipedia.org/wiki/Shanghai"},
					},
				})
			case "Second_Sino-Japanese_War":
				json.NewEncoder(w).Encode(map[string]any{
					"title":   "Second Sino-Japanese War",
					"extract": "The Second Sino-Japanese War was fought between China and Japan.",
					"content_urls": map[string]any{
						"desktop": map[string]any{"page": "https://en.wikipedia.org/wiki/Second_Sino-Japanese_War"},
					},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		case r.URL.Path == "/w/api.php":
			json.NewEncoder(w).Encode([]any{
				r.URL.Query().Get("search"),
				[]string{
					"Shanghai",
					"Shanghai (disambiguation)",
					"2008 Summer Olympics",
					"History of Shanghai",
					"Second Sino-Japanese War",
				},
				[]string{},
				[]string{},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPageSummary(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	page, err := client.PageSummary(context.Background(), "Shanghai")
	if err != nil {
		t.Fatalf("PageSummary failed: %v", err)
	}
	if page.Title != "Shanghai" {
		t.Errorf("expected title Shanghai, got %s", page.Title)
	}
	if page.URL != "https://en.wikipedia.org/wiki/Shanghai" {
		t.Errorf("unexpected URL %s", page.URL)
	}
}

func TestPageSummaryNotFound(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.PageSummary(context.Background(), "No Such Page")
	if !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestFetchContext(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	page, err := client.FetchContext(context.Background(), "Shanghai, China", "1930s")
	if err != nil {
		t.Fatalf("FetchContext failed: %v", err)
	}
	if !strings.Contains(page.Extract, "Historical context for Shanghai during 1930s") {
		t.Errorf("unexpected context text: %s", page.Extract)
	}
}

func TestRelatedPagesFiltering(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	titles, err := client.RelatedPages(context.Background(), "Shanghai, China", "1930s")
	if err != nil {
		t.Fatalf("RelatedPages failed: %v", err)
	}

	for _, title := range titles {
		lower := strings.ToLower(title)
		if lower == "shanghai" {
			t.Error("location itself should be filtered out")
		}
		if strings.Contains(lower, "disambiguation") || strings.Contains(lower, "olympics") {
			t.Errorf("irrelevant title not filtered: %s", title)
		}
	}
	if len(titles) == 0 {
		t.Error("expected at least one related page")
	}
}

func TestFetchMultiple(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	bundle, err := client.FetchMultiple(context.Background(), "Shanghai", "1930s",
		[]string{"Second Sino-Japanese War", "Missing Topic"})
	if err != nil {
		t.Fatalf("FetchMultiple failed: %v", err)
	}

	if len(bundle.RelatedPages) != 2 {
		t.Fatalf("expected 2 related pages (location + 1 topic), got %d", len(bundle.RelatedPages))
	}
	if bundle.RelatedPages[0].Type != "location" || bundle.RelatedPages[1].Type != "topic" {
		t.Errorf("unexpected link types: %+v", bundle.RelatedPages)
	}
	if len(bundle.CombinedText) > 2000 {
		t.Errorf("combined text exceeds cap: %d", len(bundle.CombinedText))
	}
	if !strings.Contains(bundle.CombinedText, "Second Sino-Japanese War") {
		t.Errorf("topic context missing from combined text")
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("上海历史", 300)

	got := truncate(long, 1000)
	if !utf8.ValidString(got) {
		t.Error("truncated text is not valid UTF-8")
	}
	if utf8.RuneCountInString(got) != 1000 {
		t.Errorf("expected 1000 runes, got %d", utf8.RuneCountInString(got))
	}

	short := "戦前の東京"
	if truncate(short, 1000) != short {
		t.Error("text under the cap should be unchanged")
	}
}
