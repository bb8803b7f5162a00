package postgres

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_readings",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_app_usage",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE READINGS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS readings (
    id UUID PRIMARY KEY,
    device_id VARCHAR(128) NOT NULL,
    screen_hours DOUBLE PRECISION NOT NULL,
    temperature DOUBLE PRECISION NOT NULL,
    humidity DOUBLE PRECISION NOT NULL,
    air_quality DOUBLE PRECISION NOT NULL,
    env_updated_at TIMESTAMP WITH TIME ZONE,
    stress_value DOUBLE PRECISION NOT NULL,
    category VARCHAR(32) NOT NULL,
    message TEXT NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_stress_value CHECK (stress_value >= 0 AND stress_value <= 100),
    CONSTRAINT valid_category CHECK (category IN (
        'Very Low Stress', 'Low Stress', 'Medium Stress', 'High Stress', 'Very High Stress'
    ))
);

CREATE INDEX IF NOT EXISTS idx_readings_device_recorded ON readings(device_id, recorded_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS readings;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE APP USAGE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS app_usage (
    reading_id UUID NOT NULL REFERENCES readings(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    app_name VARCHAR(255) NOT NULL,
    foreground_seconds BIGINT NOT NULL,

    PRIMARY KEY (reading_id, position),
    CONSTRAINT valid_foreground CHECK (foreground_seconds >= 0)
);
`

const migration002Down = `
DROP TABLE IF EXISTS app_usage;
`
