package romdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/liftlab-data/rom.engine/internal/features"
	"github.com/liftlab-data/rom.engine/internal/rom"
	"github.com/liftlab-data/rom.engine/internal/session"
	"github.com/liftlab-data/rom.engine/internal/units"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "rom_test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMigratesSchema(t *testing.T) {
	db := testDB(t)
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='reps'`).Scan(&name)
	if err != nil {
		t.Fatalf("reps table missing after migration: %v", err)
	}
}

func TestSaveAndLoadReps(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.CreateSession(ctx, "sess-1", string(rom.TypeStroke), units.Centimeters); err != nil {
		t.Fatal(err)
	}
	// Idempotent re-create must not error.
	if err := db.CreateSession(ctx, "sess-1", string(rom.TypeStroke), units.Centimeters); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		rec := session.RepRecord{
			Index:       i,
			Value:       40 + float64(i),
			Type:        rom.TypeStroke,
			Unit:        units.Centimeters,
			Fulfillment: 100,
		}
		f := features.RepFeatures{DurationSec: 1.5, LDLJ: -6.2}
		if err := db.SaveRep(ctx, "sess-1", rec, f); err != nil {
			t.Fatal(err)
		}
	}

	reps, err := db.RepsForSession(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(reps) != 3 {
		t.Fatalf("got %d reps, want 3", len(reps))
	}
	if reps[0].Index != 1 || reps[2].Index != 3 {
		t.Errorf("reps out of order: %+v", reps)
	}
	if reps[1].Value != 42 {
		t.Errorf("rep 2 value = %v, want 42", reps[1].Value)
	}
	if reps[0].LDLJ != -6.2 {
		t.Errorf("rep 1 ldlj = %v, want -6.2", reps[0].LDLJ)
	}
}

func TestSessionTargetAndCalibration(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.CreateSession(ctx, "sess-2", string(rom.TypeAngle), units.Degrees); err != nil {
		t.Fatal(err)
	}
	payload := session.CalibrationPayload{
		TargetROM: 95,
		RepROMs:   []float64{90, 100},
		ROMType:   rom.TypeAngle,
		Unit:      units.Degrees,
	}
	if err := db.SaveCalibration(ctx, "sess-2", payload); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSessionTarget(ctx, "sess-2", payload.TargetROM); err != nil {
		t.Fatal(err)
	}

	s, err := db.GetSession(ctx, "sess-2")
	if err != nil {
		t.Fatal(err)
	}
	if s.TargetROM != 95 {
		t.Errorf("target = %v, want 95", s.TargetROM)
	}
	if s.ROMType != string(rom.TypeAngle) {
		t.Errorf("rom type = %q", s.ROMType)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetSession(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing session")
	}
}

func TestListSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := db.CreateSession(ctx, id, string(rom.TypeStroke), units.Centimeters); err != nil {
			t.Fatal(err)
		}
	}
	sessions, err := db.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2", len(sessions))
	}
}

func TestCreateSessionRejectsUnknownUnit(t *testing.T) {
	db := testDB(t)
	err := db.CreateSession(context.Background(), "sess-3", string(rom.TypeStroke), "furlongs")
	if err == nil {
		t.Fatal("expected error for unknown unit")
	}
}
