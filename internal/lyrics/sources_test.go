package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLRCLibSource_SyncedLyrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("track_name"); got != "Song" {
			t.Errorf("track_name = %q, want Song", got)
		}
		if got := r.URL.Query().Get("duration"); got != "200" {
			t.Errorf("duration = %q, want 200", got)
		}
		w.Write([]byte(`{"syncedLyrics":"[00:00.00]hello\n[00:10.00]world","plainLyrics":"hello\nworld"}`))
	}))
	defer server.Close()

	src := NewLRCLibSource(2*time.Second, zap.NewNop())
	src.baseURL = server.URL

	result, err := src.Query(context.Background(), "Song", "Artist", 200000)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[1].TimeMs != 10000 {
		t.Errorf("unexpected lines: %+v", result.Lines)
	}
}

func TestLRCLibSource_PlainFallbackAndNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("track_name") {
		case "PlainOnly":
			w.Write([]byte(`{"syncedLyrics":"","plainLyrics":"just text"}`))
		case "Instrumental":
			w.Write([]byte(`{"instrumental":true,"plainLyrics":"should be ignored"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	src := NewLRCLibSource(2*time.Second, zap.NewNop())
	src.baseURL = server.URL
	ctx := context.Background()

	result, err := src.Query(ctx, "PlainOnly", "Artist", 0)
	if err != nil || result.Plain != "just text" {
		t.Errorf("plain fallback = (%+v, %v)", result, err)
	}

	result, err = src.Query(ctx, "Instrumental", "Artist", 0)
	if err != nil || !result.Empty() {
		t.Errorf("instrumental should be empty, got (%+v, %v)", result, err)
	}

	result, err = src.Query(ctx, "Unknown", "Artist", 0)
	if err != nil || !result.Empty() {
		t.Errorf("404 should be an empty result, got (%+v, %v)", result, err)
	}
}

func TestOVHSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Artist/Song" {
			w.Write([]byte(`{"lyrics":"plain lyrics body"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src := NewOVHSource(2*time.Second, zap.NewNop())
	src.baseURL = server.URL
	ctx := context.Background()

	result, err := src.Query(ctx, "Song", "Artist", 0)
	if err != nil || result.Plain != "plain lyrics body" {
		t.Errorf("Query = (%+v, %v)", result, err)
	}

	result, err = src.Query(ctx, "Nothing", "Artist", 0)
	if err != nil || !result.Empty() {
		t.Errorf("404 should be an empty result, got (%+v, %v)", result, err)
	}
}

func TestGeniusSource_ScrapesContainer(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			if got := r.Header.Get("Authorization"); got != "Bearer token123" {
				t.Errorf("Authorization = %q", got)
			}
			w.Write([]byte(`{"response":{"hits":[{"result":{"url":"` + server.URL + `/song-page"}}]}}`))
		case "/song-page":
			w.Write([]byte(`<html><div class="Lyrics__Container-sc-1">` +
				`First verse line one<br/>First verse line two<br/><br/>` +
				`Second verse opens here &amp; keeps going` +
				`</div></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	src := NewGeniusSource("token123", 2*time.Second, zap.NewNop())
	src.baseURL = server.URL

	result, err := src.Query(context.Background(), "Song", "Artist", 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	want := "First verse line one\nFirst verse line two\n\nSecond verse opens here & keeps going"
	if result.Plain != want {
		t.Errorf("Plain = %q, want %q", result.Plain, want)
	}
}

func TestGeniusSource_ShortContainerIsAMiss(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(`{"response":{"hits":[{"result":{"url":"` + server.URL + `/page"}}]}}`))
		case "/page":
			w.Write([]byte(`<div class="Lyrics__Container">Instrumental</div>`))
		}
	}))
	defer server.Close()

	src := NewGeniusSource("token123", 2*time.Second, zap.NewNop())
	src.baseURL = server.URL

	result, err := src.Query(context.Background(), "Song", "Artist", 0)
	if err != nil || !result.Empty() {
		t.Errorf("short container should be a miss, got (%+v, %v)", result, err)
	}
}

func TestGeniusSource_NoTokenIsSilentMiss(t *testing.T) {
	src := NewGeniusSource("", 2*time.Second, zap.NewNop())

	result, err := src.Query(context.Background(), "Song", "Artist", 0)
	if err != nil || !result.Empty() {
		t.Errorf("tokenless query should be a silent miss, got (%+v, %v)", result, err)
	}
}

func TestStripHTML(t *testing.T) {
	in := `line one<br>line two<i>emphasized</i></p>after paragraph<br/><br/><br/>far below`
	got := stripHTML(in)
	want := "line one\nline twoemphasized\nafter paragraph\n\nfar below"
	if got != want {
		t.Errorf("stripHTML = %q, want %q", got, want)
	}
}
