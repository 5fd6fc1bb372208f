package romdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/liftlab-data/rom.engine/internal/features"
	"github.com/liftlab-data/rom.engine/internal/session"
	"github.com/liftlab-data/rom.engine/internal/units"
)

// SessionRow is a persisted session header.
type SessionRow struct {
	SessionID string
	ROMType   string
	Unit      string
	TargetROM float64
}

// RepRow is a persisted rep with its descriptors.
type RepRow struct {
	SessionID     string
	Index         int
	Value         float64
	ROMType       string
	Unit          string
	Fulfillment   float64
	DurationSec   float64
	LDLJ          float64
	ConcentricSec float64
	EccentricSec  float64
}

// CreateSession inserts a session header. Idempotent per session ID.
func (db *DB) CreateSession(ctx context.Context, id string, romType, unit string) error {
	if !units.IsValid(unit) {
		return fmt.Errorf("invalid unit %q, must be one of: %s", unit, units.GetValidUnitsString())
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, rom_type, unit)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`, id, romType, unit)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SetSessionTarget records the calibrated target on the session header.
func (db *DB) SetSessionTarget(ctx context.Context, id string, target float64) error {
	_, err := db.ExecContext(ctx, `UPDATE sessions SET target_rom = ? WHERE session_id = ?`, target, id)
	if err != nil {
		return fmt.Errorf("failed to set session target: %w", err)
	}
	return nil
}

// SaveRep persists one completed rep with its movement descriptors.
func (db *DB) SaveRep(ctx context.Context, sessionID string, rec session.RepRecord, f features.RepFeatures) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reps (session_id, rep_index, value, rom_type, unit, fulfillment,
		                  duration_sec, ldlj, concentric_sec, eccentric_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, rec.Index, rec.Value, string(rec.Type), rec.Unit, rec.Fulfillment,
		f.DurationSec, f.LDLJ, f.ConcentricSec, f.EccentricSec)
	if err != nil {
		return fmt.Errorf("failed to save rep %d: %w", rec.Index, err)
	}
	return nil
}

// SaveCalibration persists the calibration payload for a session.
func (db *DB) SaveCalibration(ctx context.Context, sessionID string, p session.CalibrationPayload) error {
	roms, err := json.Marshal(p.RepROMs)
	if err != nil {
		return fmt.Errorf("failed to encode calibration ROMs: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO calibrations (session_id, target_rom, rep_roms, rom_type, unit)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, p.TargetROM, string(roms), string(p.ROMType), p.Unit)
	if err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}
	return nil
}

// GetSession loads a session header.
func (db *DB) GetSession(ctx context.Context, id string) (*SessionRow, error) {
	row := db.QueryRowContext(ctx, `
		SELECT session_id, rom_type, unit, target_rom FROM sessions WHERE session_id = ?`, id)
	var s SessionRow
	if err := row.Scan(&s.SessionID, &s.ROMType, &s.Unit, &s.TargetROM); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %q not found", id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

// ListSessions returns all session headers, newest first.
func (db *DB) ListSessions(ctx context.Context) ([]SessionRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT session_id, rom_type, unit, target_rom FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var s SessionRow
		if err := rows.Scan(&s.SessionID, &s.ROMType, &s.Unit, &s.TargetROM); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RepsForSession returns a session's reps in rep order.
func (db *DB) RepsForSession(ctx context.Context, sessionID string) ([]RepRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT session_id, rep_index, value, rom_type, unit, fulfillment,
		       duration_sec, ldlj, concentric_sec, eccentric_sec
		FROM reps WHERE session_id = ? ORDER BY rep_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reps: %w", err)
	}
	defer rows.Close()

	var out []RepRow
	for rows.Next() {
		var r RepRow
		if err := rows.Scan(&r.SessionID, &r.Index, &r.Value, &r.ROMType, &r.Unit, &r.Fulfillment,
			&r.DurationSec, &r.LDLJ, &r.ConcentricSec, &r.EccentricSec); err != nil {
			return nil, fmt.Errorf("failed to scan rep: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
