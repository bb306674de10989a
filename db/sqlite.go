// Package db keeps an audit trail of prediction outcomes and training runs in SQLite.
// Feature vectors are never stored.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        label TEXT,
        confidence REAL,
        error_kind TEXT,
        model_version TEXT,
        duration_ms REAL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        model_version TEXT,
        accuracy REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    `

// Store is an SQLite-backed audit log.
type Store struct {
	db *sql.DB
}

// PredictionRecord is one audited request. Label is empty when ErrorKind is set.
type PredictionRecord struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Label        string    `json:"label,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ModelVersion string    `json:"model_version,omitempty"`
	DurationMs   float64   `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

type TrainingLog struct {
	ModelName    string    `json:"model_name"`
	ModelVersion string    `json:"model_version"`
	Accuracy     float64   `json:"accuracy"`
	TrainedAt    time.Time `json:"trained_at"`
	DataPoints   int       `json:"data_points"`
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers anyway
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SavePrediction(ctx context.Context, record PredictionRecord) error {
	if record.RequestID == "" {
		return errors.New("request id required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (
            request_id, label, confidence, error_kind, model_version, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `,
		record.RequestID,
		record.Label,
		record.Confidence,
		record.ErrorKind,
		record.ModelVersion,
		record.DurationMs,
		record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, request_id, label, confidence, error_kind, model_version, duration_ms, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		var label, errorKind, version sql.NullString
		var confidence sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.RequestID, &label, &confidence, &errorKind, &version, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		r.Label = label.String
		r.Confidence = confidence.Float64
		r.ErrorKind = errorKind.String
		r.ModelVersion = version.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) SaveTrainingLog(ctx context.Context, log TrainingLog) error {
	if log.TrainedAt.IsZero() {
		log.TrainedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (model_name, model_version, accuracy, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?)
    `, log.ModelName, log.ModelVersion, log.Accuracy, log.TrainedAt.UTC(), log.DataPoints)
	if err != nil {
		return fmt.Errorf("failed to save training log: %w", err)
	}
	return nil
}

func (s *Store) LoadTrainingLog(ctx context.Context) ([]TrainingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_name, model_version, accuracy, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.ModelVersion, &log.Accuracy, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
