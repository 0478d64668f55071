package testutil

import (
	"encoding/json"
	"net/http"
	"testing"
)

func echoHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	})
	return mux
}

func TestDo(t *testing.T) {
	rec := Do(t, echoHandler(), http.MethodGet, "/ok")
	if rec.Code != http.StatusOK {
		t.Fatalf("Do returned status %d, want %d", rec.Code, http.StatusOK)
	}

	rec = Do(t, echoHandler(), http.MethodPost, "/ok")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Do returned status %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestGet(t *testing.T) {
	rec := Get(t, echoHandler(), "/ok", http.StatusOK)
	if rec.Body.Len() == 0 {
		t.Fatal("Get returned an empty body")
	}
	Get(t, echoHandler(), "/missing", http.StatusNotFound)
}

func TestGetJSON(t *testing.T) {
	var body map[string]string
	GetJSON(t, echoHandler(), "/ok", &body)
	if body["path"] != "/ok" {
		t.Fatalf("decoded path = %q, want %q", body["path"], "/ok")
	}
}

func TestAssertStatusCode(t *testing.T) {
	// Matching codes must not fail the surrounding test.
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}
