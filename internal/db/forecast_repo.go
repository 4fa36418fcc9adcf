package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"surfcast/internal/types"
)

// PostgresSchema creates the forecasts table.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS forecasts (
	location_id  TEXT PRIMARY KEY,
	state        TEXT NOT NULL,
	model        TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	hours        INTEGER NOT NULL,
	document     JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const forecastColumns = `location_id, state, model, generated_at, hours, document`

// ForecastRepository provides data access for the forecasts table.
type ForecastRepository struct {
	db DBTX
}

// NewForecastRepository creates a ForecastRepository backed by the given
// database connection (pool or transaction).
func NewForecastRepository(db DBTX) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// Upsert replaces the stored forecast for row.LocationID. An older document
// never overwrites a newer one.
func (r *ForecastRepository) Upsert(ctx context.Context, row ForecastRow) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO forecasts (`+forecastColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (location_id) DO UPDATE SET
			state = EXCLUDED.state,
			model = EXCLUDED.model,
			generated_at = EXCLUDED.generated_at,
			hours = EXCLUDED.hours,
			document = EXCLUDED.document,
			updated_at = now()
		WHERE forecasts.generated_at <= EXCLUDED.generated_at`,
		row.LocationID, row.State, row.Model, row.GeneratedAt, row.Hours, row.Document,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to store forecast", err)
	}
	return nil
}

// Get returns the stored forecast for locationID.
func (r *ForecastRepository) Get(ctx context.Context, locationID string) (*ForecastRow, error) {
	rows, err := r.db.Query(ctx, `SELECT `+forecastColumns+` FROM forecasts WHERE location_id = $1`, locationID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query forecast", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[ForecastRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundForecast, "no forecast stored for location", nil,
				map[string]any{"location_id": locationID})
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan forecast", err)
	}
	return &row, nil
}

// List returns every stored forecast ordered by location.
func (r *ForecastRepository) List(ctx context.Context) ([]ForecastRow, error) {
	rows, err := r.db.Query(ctx, `SELECT `+forecastColumns+` FROM forecasts ORDER BY location_id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list forecasts", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[ForecastRow])
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan forecasts", err)
	}
	return out, nil
}
