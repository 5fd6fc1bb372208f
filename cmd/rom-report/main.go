// rom-report renders an HTML report for a stored session: per-rep ROM
// against target, fulfillment, and movement-smoothness descriptors.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/liftlab-data/rom.engine/internal/romdb"
	"github.com/liftlab-data/rom.engine/internal/version"
)

var (
	dbFile    = flag.String("db", "rom_sessions.db", "SQLite file to read")
	sessionID = flag.String("session", "", "Session ID to report; empty lists sessions")
	out       = flag.String("out", "rom_report.html", "Output HTML file")
)

func main() {
	flag.Parse()
	log.Printf("rom-report %s", version.String())
	ctx := context.Background()

	db, err := romdb.Open(*dbFile)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	if *sessionID == "" {
		listSessions(ctx, db)
		return
	}

	sess, err := db.GetSession(ctx, *sessionID)
	if err != nil {
		log.Fatal(err)
	}
	reps, err := db.RepsForSession(ctx, *sessionID)
	if err != nil {
		log.Fatal(err)
	}
	if len(reps) == 0 {
		log.Fatalf("session %s has no reps", *sessionID)
	}

	page := components.NewPage()
	page.AddCharts(romChart(sess, reps), smoothnessChart(reps))

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("render: %v", err)
	}
	log.Printf("wrote %s (%d reps)", *out, len(reps))
}

func listSessions(ctx context.Context, db *romdb.DB) {
	sessions, err := db.ListSessions(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions stored")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  type=%s unit=%s target=%.1f\n", s.SessionID, s.ROMType, s.Unit, s.TargetROM)
	}
}

func romChart(sess *romdb.SessionRow, reps []romdb.RepRow) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Rep ROM",
			Subtitle: fmt.Sprintf("session %s, target %.1f %s", sess.SessionID, sess.TargetROM, sess.Unit),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: sess.Unit}),
	)

	labels := make([]string, len(reps))
	values := make([]opts.BarData, len(reps))
	fulfillment := make([]opts.LineData, len(reps))
	for i, r := range reps {
		labels[i] = fmt.Sprintf("rep %d", r.Index)
		values[i] = opts.BarData{Value: r.Value}
		fulfillment[i] = opts.LineData{Value: r.Fulfillment}
	}
	bar.SetXAxis(labels).AddSeries("ROM", values)

	line := charts.NewLine()
	line.SetXAxis(labels).AddSeries("fulfillment %", fulfillment)
	bar.Overlap(line)
	return bar
}

func smoothnessChart(reps []romdb.RepRow) components.Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Movement smoothness",
			Subtitle: "log dimensionless jerk per rep (higher = smoother)",
		}),
	)
	labels := make([]string, len(reps))
	ldlj := make([]opts.LineData, len(reps))
	duration := make([]opts.LineData, len(reps))
	for i, r := range reps {
		labels[i] = fmt.Sprintf("rep %d", r.Index)
		ldlj[i] = opts.LineData{Value: r.LDLJ}
		duration[i] = opts.LineData{Value: r.DurationSec}
	}
	line.SetXAxis(labels).
		AddSeries("LDLJ", ldlj).
		AddSeries("duration (s)", duration)
	return line
}
