package balances

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestFetchSingleBookUSDParsesCents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance": 15050}`))
	}))
	defer srv.Close()

	o := New(Config{SingleBookBalanceURL: srv.URL, Logger: zap.NewNop()})
	usd, err := o.fetchSingleBookUSD(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usd.Equal(decimal.NewFromFloat(150.50)) {
		t.Fatalf("expected 150.50, got %v", usd)
	}
}

func TestSnapshotReturnsZeroValueBeforeRefresh(t *testing.T) {
	o := New(Config{Logger: zap.NewNop()})
	snap := o.Snapshot()
	if !snap.SingleBookUSD.IsZero() {
		t.Fatalf("expected zero-value wallets before first refresh, got %+v", snap)
	}
}
