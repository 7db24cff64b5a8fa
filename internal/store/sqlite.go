package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

const schema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id               TEXT PRIMARY KEY,
	suhu             REAL NOT NULL,
	cahaya           REAL NOT NULL,
	kelembapan_udara REAL NOT NULL,
	kelembapan_tanah REAL NOT NULL,
	waktu            INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sensor_readings_waktu ON sensor_readings(waktu);

CREATE TABLE IF NOT EXISTS device_states (
	id         TEXT PRIMARY KEY,
	lampu      INTEGER NOT NULL,
	ventilasi  TEXT NOT NULL,
	humidifier INTEGER NOT NULL,
	kipas      INTEGER NOT NULL,
	pemanas    INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLiteStore persists samples and device records in a SQLite file.
// Timestamps are stored as unix nanoseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection avoids "database is locked" between overlapping ticks.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a sample.
func (s *SQLiteStore) Create(ctx context.Context, sample greenhouse.SensorSample) (greenhouse.SensorSample, error) {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.Waktu.IsZero() {
		sample.Waktu = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (id, suhu, cahaya, kelembapan_udara, kelembapan_tanah, waktu) VALUES (?, ?, ?, ?, ?, ?)`,
		sample.ID, sample.Suhu, sample.Cahaya, sample.KelembapanUdara, sample.KelembapanTanah, sample.Waktu.UnixNano(),
	)
	if err != nil {
		return greenhouse.SensorSample{}, fmt.Errorf("insert sensor reading: %w", err)
	}
	return sample, nil
}

// Latest returns the newest sample.
func (s *SQLiteStore) Latest(ctx context.Context) (greenhouse.SensorSample, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, suhu, cahaya, kelembapan_udara, kelembapan_tanah, waktu FROM sensor_readings ORDER BY waktu DESC LIMIT 1`)
	sample, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return greenhouse.SensorSample{}, ErrNotFound
	}
	return sample, err
}

// FindRange returns samples with start <= waktu <= end, oldest first.
func (s *SQLiteStore) FindRange(ctx context.Context, start, end time.Time) ([]greenhouse.SensorSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, suhu, cahaya, kelembapan_udara, kelembapan_tanah, waktu FROM sensor_readings
		 WHERE waktu >= ? AND waktu <= ? ORDER BY waktu ASC`,
		start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query sensor readings: %w", err)
	}
	defer rows.Close()

	var result []greenhouse.SensorSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sample)
	}
	return result, rows.Err()
}

// GetLatest returns the newest device record, or nil when the table is empty.
func (s *SQLiteStore) GetLatest(ctx context.Context) (*greenhouse.DeviceState, error) {
	var (
		d       greenhouse.DeviceState
		vent    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, lampu, ventilasi, humidifier, kipas, pemanas, created_at FROM device_states
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&d.ID, &d.Lampu, &vent, &d.Humidifier, &d.Kipas, &d.Pemanas, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query device state: %w", err)
	}
	d.Ventilasi = greenhouse.Vent(vent)
	d.CreatedAt = time.Unix(0, created).UTC()
	return &d, nil
}

// Save inserts a device record.
func (s *SQLiteStore) Save(ctx context.Context, state greenhouse.DeviceState) (greenhouse.DeviceState, error) {
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_states (id, lampu, ventilasi, humidifier, kipas, pemanas, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.ID, state.Lampu, string(state.Ventilasi), state.Humidifier, state.Kipas, state.Pemanas, state.CreatedAt.UnixNano(),
	)
	if err != nil {
		return greenhouse.DeviceState{}, fmt.Errorf("insert device state: %w", err)
	}
	return state, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(row scanner) (greenhouse.SensorSample, error) {
	var (
		s     greenhouse.SensorSample
		waktu int64
	)
	if err := row.Scan(&s.ID, &s.Suhu, &s.Cahaya, &s.KelembapanUdara, &s.KelembapanTanah, &waktu); err != nil {
		return greenhouse.SensorSample{}, err
	}
	s.Waktu = time.Unix(0, waktu).UTC()
	return s, nil
}
