// Package db persists monitoring sessions, per-window detection results,
// and symptom episodes in SQLite.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
)

type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			sample_rate       DOUBLE,
			window_size       BIGINT,
			fft_size          BIGINT,
			units             TEXT,
			notes             TEXT,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS windows (
			session_id           TEXT,
			seq                  BIGINT,
			outcome              TEXT,
			tremor_intensity     BIGINT,
			dyskinesia_intensity BIGINT,
			fog_active           BOOLEAN,
			locomotor_energy     DOUBLE,
			tremor_energy        DOUBLE,
			dyskinesia_energy    DOUBLE,
			freeze_energy        DOUBLE,
			mean_mg              DOUBLE,
			stddev_mg            DOUBLE,
			cadence_hz           DOUBLE,
			frozen               BOOLEAN,
			was_walking          BOOLEAN,
			timestamp            TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS episodes (
			episode_id        TEXT PRIMARY KEY,
			session_id        TEXT,
			symptom           TEXT,
			start_seq         BIGINT,
			end_seq           BIGINT,
			windows           BIGINT,
			peak_intensity    BIGINT,
			started_at        TIMESTAMP,
			ended_at          TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Session describes one continuous monitoring run and the pipeline
// parameters it was recorded with.
type Session struct {
	ID         string    `json:"session_id"`
	SampleRate float64   `json:"sample_rate"`
	WindowSize int64     `json:"window_size"`
	FFTSize    int64     `json:"fft_size"`
	Units      string    `json:"units"`
	Notes      string    `json:"notes,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// CreateSession records a new monitoring session and returns its generated ID.
func (db *DB) CreateSession(cfg monitor.Config, units, notes string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, sample_rate, window_size, fft_size, units, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, cfg.SampleRate, cfg.WindowSize, cfg.FFTSize, units, notes,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// Sessions returns the most recent sessions, newest first.
func (db *DB) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT session_id, sample_rate, window_size, fft_size, units, notes, started_at
		FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var notes sql.NullString
		if err := rows.Scan(&s.ID, &s.SampleRate, &s.WindowSize, &s.FFTSize, &s.Units, &notes, &s.StartedAt); err != nil {
			return nil, err
		}
		s.Notes = notes.String
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// WindowRecord is one stored pipeline window result.
type WindowRecord struct {
	SessionID           string    `json:"session_id"`
	Seq                 int64     `json:"seq"`
	Outcome             string    `json:"outcome"`
	TremorIntensity     int64     `json:"tremor_intensity"`
	DyskinesiaIntensity int64     `json:"dyskinesia_intensity"`
	FOGActive           bool      `json:"fog_active"`
	LocomotorEnergy     float64   `json:"locomotor_energy"`
	TremorEnergy        float64   `json:"tremor_energy"`
	DyskinesiaEnergy    float64   `json:"dyskinesia_energy"`
	FreezeEnergy        float64   `json:"freeze_energy"`
	MeanMG              float64   `json:"mean_mg"`
	StdDevMG            float64   `json:"stddev_mg"`
	CadenceHz           float64   `json:"cadence_hz"`
	Frozen              bool      `json:"frozen"`
	WasWalking          bool      `json:"was_walking"`
	Timestamp           time.Time `json:"timestamp"`
}

// RecordWindow stores one pipeline result against a session.
func (db *DB) RecordWindow(sessionID string, r monitor.WindowResult) error {
	cadence := 0.0
	if r.Gait.CadenceOK {
		cadence = r.Gait.CadenceHz
	}
	_, err := db.Exec(
		`INSERT INTO windows (
			session_id, seq, outcome, tremor_intensity, dyskinesia_intensity,
			fog_active, locomotor_energy, tremor_energy, dyskinesia_energy,
			freeze_energy, mean_mg, stddev_mg, cadence_hz, frozen, was_walking
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, r.Seq, string(r.Outcome),
		r.Detection.TremorIntensity, r.Detection.DyskinesiaIntensity, r.Detection.FOGActive,
		r.Energies.Locomotor, r.Energies.Tremor, r.Energies.Dyskinesia, r.Energies.Freeze,
		r.Gait.Mean, r.Gait.StdDev, cadence,
		r.State.Frozen, r.State.WasWalking,
	)
	if err != nil {
		return fmt.Errorf("failed to record window: %w", err)
	}
	return nil
}

// RecentWindows returns the most recent windows for a session, newest first.
func (db *DB) RecentWindows(sessionID string, limit int) ([]WindowRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT session_id, seq, outcome, tremor_intensity, dyskinesia_intensity,
			fog_active, locomotor_energy, tremor_energy, dyskinesia_energy,
			freeze_energy, mean_mg, stddev_mg, cadence_hz, frozen, was_walking, timestamp
		FROM windows WHERE session_id = ? ORDER BY seq DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []WindowRecord
	for rows.Next() {
		var w WindowRecord
		if err := rows.Scan(
			&w.SessionID, &w.Seq, &w.Outcome, &w.TremorIntensity, &w.DyskinesiaIntensity,
			&w.FOGActive, &w.LocomotorEnergy, &w.TremorEnergy, &w.DyskinesiaEnergy,
			&w.FreezeEnergy, &w.MeanMG, &w.StdDevMG, &w.CadenceHz, &w.Frozen, &w.WasWalking,
			&w.Timestamp,
		); err != nil {
			return nil, err
		}
		records = append(records, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// WindowsSince returns a session's windows recorded at or after the given
// time, oldest first, capped at limit.
func (db *DB) WindowsSince(sessionID string, since time.Time, limit int) ([]WindowRecord, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := db.Query(
		`SELECT session_id, seq, outcome, tremor_intensity, dyskinesia_intensity,
			fog_active, locomotor_energy, tremor_energy, dyskinesia_energy,
			freeze_energy, mean_mg, stddev_mg, cadence_hz, frozen, was_walking, timestamp
		FROM windows WHERE session_id = ? AND timestamp >= datetime(?, 'unixepoch')
		ORDER BY seq ASC LIMIT ?`,
		sessionID, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []WindowRecord
	for rows.Next() {
		var w WindowRecord
		if err := rows.Scan(
			&w.SessionID, &w.Seq, &w.Outcome, &w.TremorIntensity, &w.DyskinesiaIntensity,
			&w.FOGActive, &w.LocomotorEnergy, &w.TremorEnergy, &w.DyskinesiaEnergy,
			&w.FreezeEnergy, &w.MeanMG, &w.StdDevMG, &w.CadenceHz, &w.Frozen, &w.WasWalking,
			&w.Timestamp,
		); err != nil {
			return nil, err
		}
		records = append(records, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// LatestWindow returns the newest window for a session, or nil if the
// session has no windows yet.
func (db *DB) LatestWindow(sessionID string) (*WindowRecord, error) {
	records, err := db.RecentWindows(sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// EpisodeRecord is one stored symptom episode.
type EpisodeRecord struct {
	ID            string    `json:"episode_id"`
	SessionID     string    `json:"session_id"`
	Symptom       string    `json:"symptom"`
	StartSeq      int64     `json:"start_seq"`
	EndSeq        int64     `json:"end_seq"`
	Windows       int64     `json:"windows"`
	PeakIntensity int64     `json:"peak_intensity"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
}

// RecordEpisode stores a closed episode against a session and returns the
// generated episode ID.
func (db *DB) RecordEpisode(sessionID string, e monitor.Episode) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO episodes (
			episode_id, session_id, symptom, start_seq, end_seq, windows,
			peak_intensity, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, string(e.Symptom), e.StartSeq, e.EndSeq, e.Windows,
		e.PeakIntensity, e.StartedAt.UTC(), e.EndedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record episode: %w", err)
	}
	return id, nil
}

// EpisodesSince returns episodes for a session that ended at or after the
// given time, newest first.
func (db *DB) EpisodesSince(sessionID string, since time.Time, limit int) ([]EpisodeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT episode_id, session_id, symptom, start_seq, end_seq, windows,
			peak_intensity, started_at, ended_at
		FROM episodes WHERE session_id = ? AND ended_at >= ?
		ORDER BY ended_at DESC LIMIT ?`,
		sessionID, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []EpisodeRecord
	for rows.Next() {
		var e EpisodeRecord
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.Symptom, &e.StartSeq, &e.EndSeq, &e.Windows,
			&e.PeakIntensity, &e.StartedAt, &e.EndedAt,
		); err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return episodes, nil
}

// RollupRow aggregates windows by outcome.
type RollupRow struct {
	Outcome      string  `json:"outcome"`
	Windows      int64   `json:"windows"`
	AvgIntensity float64 `json:"avg_intensity"`
	MaxIntensity int64   `json:"max_intensity"`
}

// SymptomRollup aggregates a session's windows by outcome since the given
// time. Intensity statistics use each outcome's own intensity channel;
// outcomes without an intensity scale report zero.
func (db *DB) SymptomRollup(sessionID string, since time.Time) ([]RollupRow, error) {
	rows, err := db.Query(
		`SELECT outcome, COUNT(*),
			AVG(CASE outcome
				WHEN 'tremor' THEN tremor_intensity
				WHEN 'dyskinesia' THEN dyskinesia_intensity
				ELSE 0 END),
			MAX(CASE outcome
				WHEN 'tremor' THEN tremor_intensity
				WHEN 'dyskinesia' THEN dyskinesia_intensity
				ELSE 0 END)
		FROM windows WHERE session_id = ? AND timestamp >= datetime(?, 'unixepoch')
		GROUP BY outcome ORDER BY outcome`,
		sessionID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rollup []RollupRow
	for rows.Next() {
		var r RollupRow
		if err := rows.Scan(&r.Outcome, &r.Windows, &r.AvgIntensity, &r.MaxIntensity); err != nil {
			return nil, err
		}
		rollup = append(rollup, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rollup, nil
}

// AttachAdminRoutes registers database debugging endpoints on the given mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/db/backup", func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		// Send the backup file to the client
		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		// Copy the backup file content to the gzip writer
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	})
}
