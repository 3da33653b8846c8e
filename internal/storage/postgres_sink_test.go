package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

func TestPostgresSinkInsertCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	sink := &PostgresSink{db: db, logger: zap.NewNop()}

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO trade_attempts")
	mock.ExpectExec("INSERT INTO trade_attempts").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	batch := []types.TradeAttempt{{
		Opportunity: types.Opportunity{
			ID:                 "opp-1",
			MarketID:           "m1",
			BuyYesVenue:        types.VenueSingleBook,
			BuyYesPrice:        mustDec("0.45"),
			BuyNoVenue:         types.VenueTwoBook,
			BuyNoPrice:         mustDec("0.40"),
			PotentialTradeSize: mustDec("10"),
			ProfitMargin:       mustDec("0.14"),
		},
		Timestamp:    time.Now(),
		Category:     "buy_both",
		SingleBookOK: true,
	}}

	if err := sink.Insert(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSinkInsertRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	sink := &PostgresSink{db: db, logger: zap.NewNop()}

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO trade_attempts")
	mock.ExpectExec("INSERT INTO trade_attempts").
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	batch := []types.TradeAttempt{{
		Opportunity: types.Opportunity{
			ID:                 "opp-1",
			PotentialTradeSize: mustDec("10"),
			ProfitMargin:       mustDec("0.1"),
			BuyYesPrice:        mustDec("0.4"),
			BuyNoPrice:         mustDec("0.4"),
		},
	}}

	if err := sink.Insert(context.Background(), batch); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
