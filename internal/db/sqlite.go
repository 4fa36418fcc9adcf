package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"surfcast/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS forecasts (
	location_id  TEXT PRIMARY KEY,
	state        TEXT NOT NULL,
	model        TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	hours        INTEGER NOT NULL,
	document     BLOB NOT NULL,
	updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// sqliteTime is fixed-width so stored timestamps compare correctly as text.
const sqliteTime = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteForecastRepository stores forecasts in a local SQLite file.
type SQLiteForecastRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteForecastRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating forecasts table: %w", err)
	}
	return &SQLiteForecastRepository{db: db}, nil
}

// Close releases the database.
func (r *SQLiteForecastRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteForecastRepository) Upsert(ctx context.Context, row ForecastRow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forecasts (location_id, state, model, generated_at, hours, document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (location_id) DO UPDATE SET
			state = excluded.state,
			model = excluded.model,
			generated_at = excluded.generated_at,
			hours = excluded.hours,
			document = excluded.document,
			updated_at = CURRENT_TIMESTAMP
		WHERE forecasts.generated_at <= excluded.generated_at`,
		row.LocationID, row.State, row.Model, row.GeneratedAt.UTC().Format(sqliteTime), row.Hours, row.Document,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to store forecast", err)
	}
	return nil
}

func (r *SQLiteForecastRepository) Get(ctx context.Context, locationID string) (*ForecastRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+forecastColumns+` FROM forecasts WHERE location_id = ?`, locationID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query forecast", err)
	}
	out, err := scanForecastRows(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundForecast, "no forecast stored for location", nil,
			map[string]any{"location_id": locationID})
	}
	return &out[0], nil
}

func (r *SQLiteForecastRepository) List(ctx context.Context) ([]ForecastRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+forecastColumns+` FROM forecasts ORDER BY location_id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list forecasts", err)
	}
	return scanForecastRows(rows)
}

// scanForecastRows maps result columns onto ForecastRow fields by name.
func scanForecastRows(rows *sql.Rows) ([]ForecastRow, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read columns", err)
	}

	var out []ForecastRow
	for rows.Next() {
		var row ForecastRow
		var generatedAt string
		targets := make([]any, len(cols))
		for i, col := range cols {
			switch col {
			case "location_id":
				targets[i] = &row.LocationID
			case "state":
				targets[i] = &row.State
			case "model":
				targets[i] = &row.Model
			case "generated_at":
				targets[i] = &generatedAt
			case "hours":
				targets[i] = &row.Hours
			case "document":
				targets[i] = &row.Document
			default:
				targets[i] = new(any)
			}
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan forecast", err)
		}
		if row.GeneratedAt, err = time.Parse(sqliteTime, generatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "bad generated_at "+generatedAt, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate forecasts", err)
	}
	return out, nil
}
