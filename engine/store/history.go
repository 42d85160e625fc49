package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vinlab/vinlab/engine/domain"
	_ "modernc.org/sqlite"
)

// DefaultHistoryMax is the retained history size; oldest entries are dropped
// once it is exceeded.
const DefaultHistoryMax = 50

// History persists decode history in SQLite. Retention is independent of the
// cache expiry policy: history items never expire, only rotate out.
type History struct {
	db     *sql.DB
	max    int
	logger *slog.Logger
	now    func() time.Time // for testing
}

// OpenHistory opens (creating if needed) the history database at path.
// maxItems <= 0 selects DefaultHistoryMax.
func OpenHistory(path string, maxItems int, logger *slog.Logger) (*History, error) {
	if maxItems <= 0 {
		maxItems = DefaultHistoryMax
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open history db: %w", err)
	}
	// modernc sqlite is single-writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("history pragma failed", "pragma", pragma, "err", err)
		}
	}

	h := &History{db: db, max: maxItems, logger: logger, now: time.Now}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) migrate() error {
	_, err := h.db.Exec(`CREATE TABLE IF NOT EXISTS history (
		id      TEXT PRIMARY KEY,
		vin     TEXT NOT NULL,
		make    TEXT,
		model   TEXT,
		year    TEXT,
		ts      INTEGER NOT NULL,
		vehicle TEXT
	)`)
	if err != nil {
		return fmt.Errorf("store: migrate history: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (h *History) Close() error { return h.db.Close() }

// Add prepends a history item derived from the record and rotates out the
// oldest entries beyond the retained maximum.
func (h *History) Add(ctx context.Context, v *domain.DecodedVehicle) error {
	item := domain.HistoryItem{
		ID:        uuid.NewString(),
		VIN:       v.VIN,
		Make:      v.Make,
		Model:     v.Model,
		Year:      v.Year,
		Timestamp: h.now().UTC(),
		Vehicle:   v,
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal vehicle: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	// ts is epoch nanoseconds so the SQL ordering is numeric, never textual;
	// rowid breaks ties in favor of the later insert.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (id, vin, make, model, year, ts, vehicle) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.VIN, item.Make, item.Model, item.Year,
		item.Timestamp.UnixNano(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("store: insert history: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY ts DESC, rowid DESC LIMIT ?)`,
		h.max,
	)
	if err != nil {
		return fmt.Errorf("store: rotate history: %w", err)
	}

	return tx.Commit()
}

// List returns retained history, newest first. Corrupt rows are skipped with
// a diagnostic log line rather than failing the read.
func (h *History) List(ctx context.Context) ([]domain.HistoryItem, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, vin, make, model, year, ts, vehicle FROM history ORDER BY ts DESC, rowid DESC LIMIT ?`, h.max)
	if err != nil {
		h.logger.Warn("history read failed, returning empty", "err", err)
		return nil, nil
	}
	defer rows.Close()

	var items []domain.HistoryItem
	for rows.Next() {
		var item domain.HistoryItem
		var mk, model, year, payload sql.NullString
		var ts int64
		if err := rows.Scan(&item.ID, &item.VIN, &mk, &model, &year, &ts, &payload); err != nil {
			h.logger.Warn("history row scan failed, skipping", "err", err)
			continue
		}
		item.Make = mk.String
		item.Model = model.String
		item.Year = year.String
		item.Timestamp = time.Unix(0, ts).UTC()
		if payload.String != "" {
			var v domain.DecodedVehicle
			if err := json.Unmarshal([]byte(payload.String), &v); err != nil {
				h.logger.Warn("history vehicle corrupt, keeping summary fields", "id", item.ID, "err", err)
			} else {
				item.Vehicle = &v
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Clear removes all history.
func (h *History) Clear(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("store: clear history: %w", err)
	}
	return nil
}
