package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}

func TestSPAFallback(t *testing.T) {
	srv, _, _ := testServer(t)

	SetUI(fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html>explorer</html>")},
	})
	t.Cleanup(func() { SetUI(nil) })

	for _, path := range []string{"/", "/some/client/route"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
		if w.Body.String() != "<html>explorer</html>" {
			t.Errorf("GET %s body = %q", path, w.Body.String())
		}
	}
}

func TestSPAWithoutUI(t *testing.T) {
	srv, _, _ := testServer(t)
	SetUI(nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when UI is not embedded", w.Code)
	}
}
