package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
)

// Repository is the typed CRUD surface the core uses. Bar upserts are
// idempotent on (symbol, timeframe, timestamp); signal inserts are
// append-only with a store-assigned id; settings are last-writer-wins.
type Repository struct {
	db *DB
}

// NewRepository wraps db.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveBar upserts a single bar. Re-saving the same (symbol, timeframe,
// timestamp) key replaces the row's OHLCV content.
func (r *Repository) SaveBar(ctx context.Context, bar model.Bar) error {
	if err := bar.Validate(); err != nil {
		logging.DatabaseContext("upsert", "bars").WithError(err).Error("refusing to save malformed bar")
		return fmt.Errorf("save bar: %w", err)
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO bars (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, timestamp) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`, bar.Symbol, bar.Timeframe, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("save bar: %w", err)
	}
	return nil
}

// SaveBars upserts a batch of bars in a single transaction.
func (r *Repository) SaveBars(ctx context.Context, bars []model.Bar) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save bars: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			logging.DatabaseContext("upsert", "bars").WithError(err).Error("dropping malformed bar from batch")
			continue
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO bars (symbol, timeframe, timestamp, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (symbol, timeframe, timestamp) DO UPDATE SET
				open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
				close = EXCLUDED.close, volume = EXCLUDED.volume
		`, bar.Symbol, bar.Timeframe, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		if err != nil {
			return fmt.Errorf("save bars: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetBars returns the last limit bars for (symbol, timeframe) in
// chronological order: queried most-recent-first, then reversed.
func (r *Repository) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT symbol, timeframe, timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY timestamp DESC
		LIMIT $3
	`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Symbol, &b.Timeframe, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("get bars: scan: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// SaveSignal inserts a new signal and assigns its store id.
func (r *Repository) SaveSignal(ctx context.Context, signal *model.Signal) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO signals
			(symbol, signal_type, timestamp, entry, stop_loss, take_profit, quantity, status, reason, original_sl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, signal.Symbol, signal.Type, signal.Timestamp, signal.Entry, signal.StopLoss, signal.TakeProfit,
		signal.Quantity, signal.Status, signal.Reason, signal.OriginalSL).Scan(&signal.ID)
	if err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	return nil
}

// UpdateSignal updates only the mutable fields of a signal's lifecycle:
// status and stop loss (the move-to-breakeven transition).
func (r *Repository) UpdateSignal(ctx context.Context, signal *model.Signal) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE signals SET status = $1, stop_loss = $2 WHERE id = $3
	`, signal.Status, signal.StopLoss, signal.ID)
	if err != nil {
		return fmt.Errorf("update signal: %w", err)
	}
	return nil
}

// SignalFilter narrows GetSignals. A zero value matches everything.
type SignalFilter struct {
	Symbol string
	Status model.SignalStatus
	Limit  int
}

// GetSignals returns signals matching filter, most recent first.
func (r *Repository) GetSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, symbol, signal_type, timestamp, entry, stop_loss, take_profit,
		quantity, status, reason, original_sl FROM signals WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if filter.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argN)
		args = append(args, filter.Symbol)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", argN)
	args = append(args, limit)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get signals: %w", err)
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var s model.Signal
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Type, &s.Timestamp, &s.Entry, &s.StopLoss,
			&s.TakeProfit, &s.Quantity, &s.Status, &s.Reason, &s.OriginalSL); err != nil {
			return nil, fmt.Errorf("get signals: scan: %w", err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// GetSignalByID returns a single signal, or nil if it doesn't exist.
func (r *Repository) GetSignalByID(ctx context.Context, id int64) (*model.Signal, error) {
	var s model.Signal
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, symbol, signal_type, timestamp, entry, stop_loss, take_profit,
			quantity, status, reason, original_sl
		FROM signals WHERE id = $1
	`, id).Scan(&s.ID, &s.Symbol, &s.Type, &s.Timestamp, &s.Entry, &s.StopLoss,
		&s.TakeProfit, &s.Quantity, &s.Status, &s.Reason, &s.OriginalSL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return &s, nil
}

// SaveSetting upserts a key/value setting, last-writer-wins.
func (r *Repository) SaveSetting(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}

// GetSetting returns a setting's value, or def if the key doesn't exist.
func (r *Repository) GetSetting(ctx context.Context, key, def string) (string, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return def, nil
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}
