// mqtt-ingest subscribes to an MQTT broker delivering IMU samples and rep
// boundary events, drives a ROM session, and persists completed reps.
//
// Topics:
//
//	<prefix>/samples   JSON imu.Sample per message
//	<prefix>/control   one of: baseline, start-cal, finish-cal, target, complete
//
// The boundary detector publishing to <prefix>/control lives upstream; this
// process only reacts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/liftlab-data/rom.engine/internal/features"
	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/rom"
	"github.com/liftlab-data/rom.engine/internal/romdb"
	"github.com/liftlab-data/rom.engine/internal/session"
	"github.com/liftlab-data/rom.engine/internal/version"
)

var (
	broker  = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	prefix  = flag.String("prefix", "rom", "Topic prefix")
	romType = flag.String("type", "stroke", "ROM regime: angle or stroke")
	dbFile  = flag.String("db", "rom_sessions.db", "SQLite file for rep persistence")
)

// ingestor serializes MQTT callbacks onto one goroutine; the session
// controller is single-threaded by contract.
type ingestor struct {
	ctrl      *session.Controller
	db        *romdb.DB
	events    chan func()
	holdBuf   []imu.Sample
	repBuf    []imu.Sample
	calValues []float64
}

func main() {
	flag.Parse()
	log.Printf("mqtt-ingest %s", version.String())

	if *romType != string(rom.TypeAngle) && *romType != string(rom.TypeStroke) {
		log.Fatalf("unknown -type %q", *romType)
	}

	db, err := romdb.Open(*dbFile)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	ing := &ingestor{
		ctrl: session.New(session.Config{
			Type:   rom.Type(*romType),
			Tuning: rom.DefaultTuning(),
		}),
		db:     db,
		events: make(chan func(), 256),
	}
	ctx := context.Background()
	if err := db.CreateSession(ctx, ing.ctrl.ID(), *romType, ing.ctrl.Unit()); err != nil {
		log.Fatalf("db: %v", err)
	}
	log.Printf("session %s started (%s)", ing.ctrl.ID(), *romType)

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID("rom-ingest-" + ing.ctrl.ID()[:8])
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("MQTT connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	samplesTopic := *prefix + "/samples"
	controlTopic := *prefix + "/control"

	if token := client.Subscribe(samplesTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s imu.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("malformed sample: %v", err)
			return
		}
		ing.events <- func() { ing.addSample(s) }
	}); token.Wait() && token.Error() != nil {
		log.Fatalf("subscribe %s: %v", samplesTopic, token.Error())
	}

	if token := client.Subscribe(controlTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		cmd := strings.TrimSpace(string(msg.Payload()))
		ing.events <- func() { ing.handleControl(ctx, cmd) }
	}); token.Wait() && token.Error() != nil {
		log.Fatalf("subscribe %s: %v", controlTopic, token.Error())
	}

	log.Printf("subscribed to %s and %s", samplesTopic, controlTopic)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case fn := <-ing.events:
			fn()
		case <-sig:
			s := ing.ctrl.Stats()
			log.Printf("shutting down: %d reps, avg ROM %.1f %s", s.RepCount, s.AvgROM, ing.ctrl.Unit())
			return
		}
	}
}

func (ing *ingestor) addSample(s imu.Sample) {
	ing.ctrl.AddSample(s)
	ing.repBuf = append(ing.repBuf, s)
	ing.holdBuf = append(ing.holdBuf, s)
	if len(ing.holdBuf) > 64 {
		ing.holdBuf = ing.holdBuf[1:]
	}
}

func (ing *ingestor) handleControl(ctx context.Context, cmd string) {
	switch cmd {
	case "baseline":
		if !ing.ctrl.SetBaselineFromSamples(ing.holdBuf) {
			log.Printf("baseline rejected: %d rest samples", len(ing.holdBuf))
			return
		}
		ing.repBuf = nil
		log.Printf("baseline captured: gravity %.3f m/s²", ing.ctrl.Baseline().Gravity)

	case "start-cal":
		ing.ctrl.StartCalibrationRep()
		ing.repBuf = nil

	case "finish-cal":
		value, ok := ing.ctrl.FinishCalibrationRep()
		if !ok {
			log.Printf("calibration rep rejected")
			return
		}
		ing.repBuf = nil
		ing.calValues = append(ing.calValues, value)
		log.Printf("calibration rep: %.1f %s", value, ing.ctrl.Unit())

	case "target":
		payload := ing.ctrl.SetTargetFromCalibration(ing.calValues)
		log.Printf("target ROM: %.1f %s", payload.TargetROM, payload.Unit)
		if err := ing.db.SaveCalibration(ctx, ing.ctrl.ID(), payload); err != nil {
			log.Printf("db: %v", err)
		}
		if err := ing.db.SetSessionTarget(ctx, ing.ctrl.ID(), payload.TargetROM); err != nil {
			log.Printf("db: %v", err)
		}

	case "complete":
		rec, ok := ing.ctrl.CompleteRep()
		if !ok {
			log.Printf("rep rejected")
			return
		}
		f := features.Extract(ing.repBuf)
		ing.repBuf = nil
		log.Printf("rep %d: %.1f %s (%.0f%%)", rec.Index, rec.Value, rec.Unit, rec.Fulfillment)
		if err := ing.db.SaveRep(ctx, ing.ctrl.ID(), rec, f); err != nil {
			log.Printf("db: %v", err)
		}

	default:
		log.Printf("unknown control %q", cmd)
	}
}
