package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stresssense/stress-sense/internal/domain/reading"
	"github.com/stresssense/stress-sense/internal/domain/stress"
)

// ══════════════════════════════════════════════════════════════════════════════
// READING REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ReadingRepository implements reading.Repository for PostgreSQL.
type ReadingRepository struct {
	conn *Connection
}

// NewReadingRepository creates a new ReadingRepository.
func NewReadingRepository(conn *Connection) *ReadingRepository {
	return &ReadingRepository{conn: conn}
}

var _ reading.Repository = (*ReadingRepository)(nil)

// Save inserts the reading and its app usage rows in one transaction.
func (r *ReadingRepository) Save(ctx context.Context, rec *reading.Reading) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO readings (
				id, device_id, screen_hours, temperature, humidity, air_quality,
				env_updated_at, stress_value, category, message, recorded_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			rec.ID,
			rec.DeviceID.String(),
			rec.ScreenTimeHours,
			rec.Environment.Temperature,
			rec.Environment.Humidity,
			rec.Environment.AirQuality,
			nullableTime(rec.Environment.UpdatedAt),
			rec.StressValue,
			string(rec.Category),
			rec.Message,
			rec.RecordedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return fmt.Errorf("reading %s already stored: %w", rec.ID, err)
			}
			return fmt.Errorf("failed to insert reading: %w", err)
		}

		if len(rec.Apps) == 0 {
			return nil
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"app_usage"},
			[]string{"reading_id", "position", "app_name", "foreground_seconds"},
			pgx.CopyFromRows(appUsageRows(rec)),
		)
		if err != nil {
			return fmt.Errorf("failed to copy app usage: %w", err)
		}
		return nil
	})
}

// ListByDevice returns up to limit readings for the device, newest first,
// with their app usage attached.
func (r *ReadingRepository) ListByDevice(ctx context.Context, deviceID reading.DeviceID, limit int) ([]*reading.Reading, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id::text, device_id, screen_hours, temperature, humidity, air_quality,
			   env_updated_at, stress_value, category, message, recorded_at
		FROM readings
		WHERE device_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, deviceID.String(), reading.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	list, err := pgx.CollectRows(rows, scanReading)
	if err != nil {
		return nil, fmt.Errorf("failed to scan readings: %w", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	if err := r.attachApps(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Devices returns every device with at least one reading.
func (r *ReadingRepository) Devices(ctx context.Context) ([]reading.DeviceID, error) {
	rows, err := r.conn.Query(ctx, `SELECT DISTINCT device_id FROM readings ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan devices: %w", err)
	}

	out := make([]reading.DeviceID, len(ids))
	for i, id := range ids {
		out[i] = reading.DeviceID(id)
	}
	return out, nil
}

func (r *ReadingRepository) attachApps(ctx context.Context, list []*reading.Reading) error {
	ids := make([]string, len(list))
	byID := make(map[string]*reading.Reading, len(list))
	for i, rec := range list {
		ids[i] = rec.ID
		byID[rec.ID] = rec
	}

	rows, err := r.conn.Query(ctx, `
		SELECT reading_id::text, app_name, foreground_seconds
		FROM app_usage
		WHERE reading_id = ANY($1::uuid[])
		ORDER BY reading_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query app usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			readingID string
			app       reading.AppUsage
		)
		if err := rows.Scan(&readingID, &app.AppName, &app.ForegroundSeconds); err != nil {
			return fmt.Errorf("failed to scan app usage: %w", err)
		}
		if rec, ok := byID[readingID]; ok {
			rec.Apps = append(rec.Apps, app)
		}
	}
	return rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

func scanReading(row pgx.CollectableRow) (*reading.Reading, error) {
	var (
		rec        reading.Reading
		deviceID   string
		category   string
		envUpdated *time.Time
	)
	err := row.Scan(
		&rec.ID,
		&deviceID,
		&rec.ScreenTimeHours,
		&rec.Environment.Temperature,
		&rec.Environment.Humidity,
		&rec.Environment.AirQuality,
		&envUpdated,
		&rec.StressValue,
		&category,
		&rec.Message,
		&rec.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.DeviceID = reading.DeviceID(deviceID)
	rec.Category = stress.Category(category)
	if envUpdated != nil {
		rec.Environment.UpdatedAt = *envUpdated
	}
	return &rec, nil
}

func appUsageRows(rec *reading.Reading) [][]any {
	rows := make([][]any, len(rec.Apps))
	for i, a := range rec.Apps {
		rows[i] = []any{rec.ID, i, a.AppName, a.ForegroundSeconds}
	}
	return rows
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
