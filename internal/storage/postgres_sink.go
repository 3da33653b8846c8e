package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// PostgresSink implements Sink over lib/pq. Records are inserted one
// statement per row inside a single transaction per batch, since
// database/sql has no native batch-insert primitive and lib/pq's COPY
// support would complicate the on-failure-reprepend contract TradeStorage
// relies on.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresSink opens and pings a PostgreSQL connection.
func NewPostgresSink(cfg PostgresConfig) (*PostgresSink, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-sink-connected", zap.String("host", cfg.Host), zap.String("database", cfg.Database))
	return &PostgresSink{db: db, logger: cfg.Logger}, nil
}

const insertTradeAttemptQuery = `
	INSERT INTO trade_attempts (
		opportunity_id, market_id, category, detected_at,
		buy_yes_venue, buy_yes_price, buy_no_venue, buy_no_price,
		trade_size, profit_margin,
		single_book_ok, single_book_order, single_book_err,
		two_book_ok, two_book_order, two_book_err
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`

// Insert writes each record inside one transaction. Prices and sizes are
// serialized as decimal strings, enums as their string
// value, timestamps as ISO-8601 UTC (database/sql+lib/pq handle the
// timestamp conversion natively; decimal.Decimal.String() handles the
// rest).
func (p *PostgresSink) Insert(ctx context.Context, batch []types.TradeAttempt) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertTradeAttemptQuery)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range batch {
		_, err := stmt.ExecContext(ctx,
			a.Opportunity.ID,
			a.Opportunity.MarketID,
			a.Category,
			a.Timestamp.UTC(),
			string(a.Opportunity.BuyYesVenue),
			a.Opportunity.BuyYesPrice.String(),
			string(a.Opportunity.BuyNoVenue),
			a.Opportunity.BuyNoPrice.String(),
			a.Opportunity.PotentialTradeSize.String(),
			a.Opportunity.ProfitMargin.String(),
			a.SingleBookOK,
			a.SingleBookOrder,
			a.SingleBookErr,
			a.TwoBookOK,
			a.TwoBookOrder,
			a.TwoBookErr,
		)
		if err != nil {
			return fmt.Errorf("insert trade attempt %s: %w", a.Opportunity.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	p.logger.Debug("trade-attempts-stored", zap.Int("count", len(batch)))
	return nil
}

// Close closes the underlying connection pool.
func (p *PostgresSink) Close() error {
	p.logger.Info("closing-postgres-sink")
	return p.db.Close()
}
