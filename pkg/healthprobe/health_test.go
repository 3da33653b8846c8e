package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func probe(t *testing.T, handler http.HandlerFunc, path string) (int, ProbeResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var body ProbeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode probe response: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealthAlwaysOK(t *testing.T) {
	hc := New()

	for _, ready := range []bool{false, true} {
		hc.SetReady(ready)
		code, body := probe(t, hc.Health(), "/health")
		if code != http.StatusOK {
			t.Errorf("health status = %d, want %d (ready=%v)", code, http.StatusOK, ready)
		}
		if body.Status != "healthy" {
			t.Errorf("status = %q, want healthy", body.Status)
		}
		if body.Uptime == "" {
			t.Error("uptime is empty")
		}
	}
}

func TestReadyFollowsSetReady(t *testing.T) {
	hc := New()

	code, body := probe(t, hc.Ready(), "/ready")
	if code != http.StatusServiceUnavailable {
		t.Errorf("initial ready status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", body.Status)
	}

	hc.SetReady(true)
	code, body = probe(t, hc.Ready(), "/ready")
	if code != http.StatusOK {
		t.Errorf("ready status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != "ready" {
		t.Errorf("status = %q, want ready", body.Status)
	}

	hc.SetReady(false)
	code, _ = probe(t, hc.Ready(), "/ready")
	if code != http.StatusServiceUnavailable {
		t.Errorf("drained ready status = %d, want %d", code, http.StatusServiceUnavailable)
	}
}

func TestConcurrentSetReadyAndProbes(t *testing.T) {
	hc := New()
	handler := hc.Ready()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hc.SetReady(i%2 == 0)
		}
		close(done)
	}()

	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		handler(w, req)
	}
	<-done
}
