package monitor

import (
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/liftlab-data/rom.engine/internal/httputil"
)

// handleRepChart renders the set's rep history as a bar chart with the
// target ROM drawn as a reference line series.
func (ws *WebServer) handleRepChart(w http.ResponseWriter, r *http.Request) {
	reps := ws.ctrl.Reps()
	if len(reps) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no completed reps")
		return
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Rep ROM",
			Subtitle: fmt.Sprintf("session %s (%s)", ws.ctrl.ID(), ws.ctrl.Unit()),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: ws.ctrl.Unit()}),
	)

	labels := make([]string, len(reps))
	values := make([]opts.BarData, len(reps))
	target := make([]opts.LineData, len(reps))
	for i, rep := range reps {
		labels[i] = fmt.Sprintf("rep %d", rep.Index)
		values[i] = opts.BarData{Value: rep.Value}
		target[i] = opts.LineData{Value: ws.ctrl.TargetROM()}
	}
	bar.SetXAxis(labels).AddSeries("ROM", values)

	line := charts.NewLine()
	line.SetXAxis(labels).AddSeries("target", target)
	bar.Overlap(line)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := bar.Render(w); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleCorrectionChart renders the corrected velocity and position series
// from the most recent stroke rep's retrospective pass.
func (ws *WebServer) handleCorrectionChart(w http.ResponseWriter, r *http.Request) {
	res := ws.ctrl.LastCorrection()
	if res == nil || len(res.Position) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no correction pass recorded yet")
		return
	}

	labels := make([]string, len(res.Position))
	vel := make([]opts.LineData, len(res.Position))
	pos := make([]opts.LineData, len(res.Position))
	for i := range res.Position {
		labels[i] = fmt.Sprintf("%d", i)
		vel[i] = opts.LineData{Value: res.Velocity[i]}
		pos[i] = opts.LineData{Value: res.Position[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Retrospective correction",
			Subtitle: fmt.Sprintf("ROM %.3f m over %d samples, %d rest segments", res.ROM, len(res.Position), len(res.RestSegments)),
		}),
	)
	line.SetXAxis(labels).
		AddSeries("velocity (m/s)", vel).
		AddSeries("position (m)", pos)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
