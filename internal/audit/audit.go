package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ratedesk/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the sqlite-backed audit trail. Every save attempt against the
// pricing backend lands here, partial failures included, and the sync
// worker drains successful entries into the rate-changes spreadsheet.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "audit").Logger()
	}
	base.Info().Str("path", path).Msg("audit database initialized")

	return &DB{DB: db, logger: base}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS save_log (
            id TEXT PRIMARY KEY,
            operator TEXT NOT NULL,
            room_id INTEGER NOT NULL,
            board_type_id INTEGER NOT NULL,
            start_date TEXT NOT NULL,
            end_date TEXT NOT NULL,
            kind TEXT NOT NULL,
            price INTEGER NOT NULL,
            extra_price INTEGER NOT NULL,
            child_price INTEGER NOT NULL,
            stock INTEGER NOT NULL,
            stock_error TEXT,
            price_error TEXT,
            sync_status TEXT NOT NULL DEFAULT 'pending',
            sync_error TEXT,
            synced_at DATETIME,
            created_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_save_log_operator ON save_log(operator)`,
		`CREATE INDEX IF NOT EXISTS idx_save_log_created_at ON save_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_save_log_sync_status ON save_log(sync_status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Record inserts one save attempt.
func (db *DB) Record(ctx context.Context, entry *models.AuditEntry) error {
	query := `INSERT INTO save_log (
                id, operator, room_id, board_type_id, start_date, end_date,
                kind, price, extra_price, child_price, stock,
                stock_error, price_error, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, query,
		entry.ID,
		entry.Operator,
		entry.RoomID,
		entry.BoardTypeID,
		entry.StartDate,
		entry.EndDate,
		entry.Kind,
		entry.Price,
		entry.ExtraPrice,
		entry.ChildPrice,
		entry.Stock,
		nullIfEmpty(entry.StockError),
		nullIfEmpty(entry.PriceError),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record save attempt: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (db *DB) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	query := selectColumns + ` FROM save_log ORDER BY created_at DESC LIMIT ?`
	return db.queryEntries(ctx, query, limit)
}

// PendingSync returns successful entries the sheet worker has not
// exported yet, oldest first. Failed saves never reach the spreadsheet.
func (db *DB) PendingSync(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	query := selectColumns + ` FROM save_log
              WHERE sync_status IN ('pending', 'retry')
                AND stock_error IS NULL AND price_error IS NULL
              ORDER BY created_at ASC LIMIT ?`
	return db.queryEntries(ctx, query, limit)
}

// MarkSynced flags a batch as exported.
func (db *DB) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`UPDATE save_log SET sync_status = 'synced', sync_error = NULL, synced_at = ? WHERE id IN (%s)`, placeholders)

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, time.Now())
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark entries synced: %w", err)
	}
	return nil
}

// MarkSyncError records an export failure; final failures leave the
// pending pool, non-final ones are retried on the next poll.
func (db *DB) MarkSyncError(ctx context.Context, id, errMsg string, final bool) error {
	status := "retry"
	if final {
		status = "failed"
	}

	query := `UPDATE save_log SET sync_status = ?, sync_error = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, status, errMsg, id); err != nil {
		return fmt.Errorf("failed to mark sync error: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, operator, room_id, board_type_id, start_date, end_date,
                kind, price, extra_price, child_price, stock,
                stock_error, price_error, created_at`

func (db *DB) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.AuditEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query save log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var stockErr, priceErr sql.NullString
		err := rows.Scan(
			&e.ID, &e.Operator, &e.RoomID, &e.BoardTypeID, &e.StartDate, &e.EndDate,
			&e.Kind, &e.Price, &e.ExtraPrice, &e.ChildPrice, &e.Stock,
			&stockErr, &priceErr, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan save log entry: %w", err)
		}
		e.StockError = stockErr.String
		e.PriceError = priceErr.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
