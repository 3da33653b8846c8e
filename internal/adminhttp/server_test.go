package adminhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/healthprobe"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

type fakeStatusProvider struct{ status Status }

func (f fakeStatusProvider) Status() Status { return f.status }

func TestHealthEndpointAlwaysOK(t *testing.T) {
	srv := New(Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
}

func TestReadyEndpointReflectsHealthChecker(t *testing.T) {
	hc := healthprobe.New()
	srv := New(Config{Port: "0", Logger: zap.NewNop(), HealthChecker: hc})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", w.Result().StatusCode)
	}

	hc.SetReady(true)
	w2 := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w2, req)
	if w2.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 once ready, got %d", w2.Result().StatusCode)
	}
}

func TestPairsEndpointReturnsConfiguredMarkets(t *testing.T) {
	pairs := []types.MarketPair{{MarketID: "fed-dec", SingleBookID: "KXFED-24DEC-T4.00"}}
	srv := New(Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), TargetMarkets: pairs})

	req := httptest.NewRequest(http.MethodGet, "/pairs", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
}

func TestStatusEndpointDelegatesToProvider(t *testing.T) {
	sp := fakeStatusProvider{status: Status{Environment: "DEMO", DryRun: true}}
	srv := New(Config{Port: "0", Logger: zap.NewNop(), HealthChecker: healthprobe.New(), StatusProvider: sp})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
}
