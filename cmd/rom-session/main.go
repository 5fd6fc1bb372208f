// rom-session drives a ROM session from a stream of JSON-encoded IMU
// samples, read from a serial port or replayed from a file (or stdin).
//
// The stream is line-oriented. Each line is either a sample object or a
// control directive standing in for the app's rep-boundary detector:
//
//	!baseline        capture the rest-hold baseline from the buffered samples
//	!start-cal       begin a calibration rep
//	!finish-cal      score the calibration rep
//	!target          derive the target ROM from the calibration reps
//	!complete        score a workout rep
//	!stats           print the running set statistics
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"go.bug.st/serial"

	"github.com/liftlab-data/rom.engine/internal/config"
	"github.com/liftlab-data/rom.engine/internal/features"
	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/monitor"
	"github.com/liftlab-data/rom.engine/internal/rom"
	"github.com/liftlab-data/rom.engine/internal/romdb"
	"github.com/liftlab-data/rom.engine/internal/session"
	"github.com/liftlab-data/rom.engine/internal/version"
)

var (
	port       = flag.String("port", "", "Serial port delivering sample lines (e.g. /dev/ttyUSB0)")
	baud       = flag.Int("baud", 115200, "Serial baud rate")
	replay     = flag.String("replay", "", "Replay sample lines from a file; '-' for stdin")
	romType    = flag.String("type", "stroke", "ROM regime: angle or stroke")
	configPath = flag.String("config", "", "Optional JSON tuning overrides")
	dbFile     = flag.String("db", "", "Optional SQLite file for rep persistence")
	listen     = flag.String("listen", "", "Optional debug server address (e.g. :8080)")
)

func main() {
	flag.Parse()
	log.Printf("rom-session %s", version.String())

	if (*port == "") == (*replay == "") {
		log.Fatal("exactly one of -port or -replay is required")
	}
	if *romType != string(rom.TypeAngle) && *romType != string(rom.TypeStroke) {
		log.Fatalf("unknown -type %q", *romType)
	}

	tuning := rom.DefaultTuning()
	cfg := session.Config{Type: rom.Type(*romType)}
	if *configPath != "" {
		overrides, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		overrides.Apply(&tuning)
		if overrides.GyroRadiansThreshold != nil {
			cfg.GyroRadiansThreshold = *overrides.GyroRadiansThreshold
		}
		if overrides.ResetHistoryOnReanchor != nil {
			cfg.ResetHistoryOnReanchor = *overrides.ResetHistoryOnReanchor
		}
	}
	cfg.Tuning = tuning

	ctrl := session.New(cfg)
	log.Printf("session %s started (%s)", ctrl.ID(), ctrl.Type())

	var db *romdb.DB
	if *dbFile != "" {
		var err error
		db, err = romdb.Open(*dbFile)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		if err := db.CreateSession(context.Background(), ctrl.ID(), string(ctrl.Type()), ctrl.Unit()); err != nil {
			log.Fatalf("db: %v", err)
		}
	}

	if *listen != "" {
		mux := http.NewServeMux()
		monitor.NewWebServer(ctrl).Routes(mux)
		go func() {
			log.Printf("debug server on %s", *listen)
			if err := http.ListenAndServe(*listen, mux); err != nil {
				log.Printf("debug server: %v", err)
			}
		}()
	}

	in, closeIn, err := openInput()
	if err != nil {
		log.Fatal(err)
	}
	defer closeIn()

	if err := run(ctrl, db, in); err != nil {
		log.Fatal(err)
	}
	printStats(ctrl)
}

func openInput() (io.Reader, func(), error) {
	if *replay != "" {
		if *replay == "-" {
			return os.Stdin, func() {}, nil
		}
		f, err := os.Open(*replay)
		if err != nil {
			return nil, nil, fmt.Errorf("replay: %w", err)
		}
		return f, func() { f.Close() }, nil
	}

	mode := &serial.Mode{BaudRate: *baud}
	p, err := serial.Open(*port, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("serial: %w", err)
	}
	return p, func() { p.Close() }, nil
}

// run consumes the stream. Samples ahead of a !baseline directive double as
// the rest-hold buffer.
func run(ctrl *session.Controller, db *romdb.DB, in io.Reader) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	var holdBuf []imu.Sample
	var repSamples []imu.Sample
	var calValues []float64

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "!") {
			if err := control(ctx, ctrl, db, line, holdBuf, &repSamples, &calValues); err != nil {
				log.Printf("%s: %v", line, err)
			}
			continue
		}

		var s imu.Sample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			log.Printf("skipping malformed sample: %v", err)
			continue
		}
		ctrl.AddSample(s)
		holdBuf = append(holdBuf, s)
		repSamples = append(repSamples, s)
		if len(holdBuf) > 64 {
			holdBuf = holdBuf[1:]
		}
	}
	return scanner.Err()
}

func control(ctx context.Context, ctrl *session.Controller, db *romdb.DB, line string, holdBuf []imu.Sample, repSamples *[]imu.Sample, calValues *[]float64) error {
	switch line {
	case "!baseline":
		if !ctrl.SetBaselineFromSamples(holdBuf) {
			return fmt.Errorf("not enough rest samples (%d)", len(holdBuf))
		}
		*repSamples = nil
		log.Printf("baseline captured: gravity %.3f m/s²", ctrl.Baseline().Gravity)

	case "!start-cal":
		ctrl.StartCalibrationRep()
		*repSamples = nil

	case "!finish-cal":
		value, ok := ctrl.FinishCalibrationRep()
		if !ok {
			return fmt.Errorf("calibration rep rejected")
		}
		*repSamples = nil
		*calValues = append(*calValues, value)
		log.Printf("calibration rep: %.1f %s", value, ctrl.Unit())

	case "!target":
		payload := ctrl.SetTargetFromCalibration(*calValues)
		log.Printf("target ROM: %.1f %s", payload.TargetROM, payload.Unit)
		if db != nil {
			if err := db.SaveCalibration(ctx, ctrl.ID(), payload); err != nil {
				return err
			}
			return db.SetSessionTarget(ctx, ctrl.ID(), payload.TargetROM)
		}

	case "!complete":
		rec, ok := ctrl.CompleteRep()
		if !ok {
			return fmt.Errorf("rep rejected")
		}
		f := features.Extract(*repSamples)
		*repSamples = nil
		log.Printf("rep %d: %.1f %s (%.0f%% of target, ldlj %.2f)",
			rec.Index, rec.Value, rec.Unit, rec.Fulfillment, f.LDLJ)
		if db != nil {
			return db.SaveRep(ctx, ctrl.ID(), rec, f)
		}

	case "!stats":
		printStats(ctrl)

	default:
		return fmt.Errorf("unknown directive")
	}
	return nil
}

func printStats(ctrl *session.Controller) {
	s := ctrl.Stats()
	fmt.Printf("reps=%d avgROM=%.1f maxROM=%.1f consistency=%.0f%% target=%.1f avgFulfillment=%.0f%%\n",
		s.RepCount, s.AvgROM, s.MaxROM, s.ConsistencyPercent, s.TargetROM, s.AvgFulfillment)
}
