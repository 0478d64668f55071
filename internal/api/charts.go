package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/db"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/httputil"
)

// TimelineChart builds the symptom timeline for a set of stored windows:
// tremor and dyskinesia intensity as lines, freezing-of-gait windows as
// full-height markers. Records must be in ascending seq order. Shared
// between the live API endpoint and the offline report tool.
func TimelineChart(records []db.WindowRecord, subtitle string) *charts.Line {
	labels := make([]string, len(records))
	tremor := make([]opts.LineData, len(records))
	dysk := make([]opts.LineData, len(records))
	var fog []opts.ScatterData

	for i, rec := range records {
		labels[i] = rec.Timestamp.Format("15:04:05")
		tremor[i] = opts.LineData{Value: rec.TremorIntensity}
		dysk[i] = opts.LineData{Value: rec.DyskinesiaIntensity}
		if rec.FOGActive {
			fog = append(fog, opts.ScatterData{Value: []interface{}{labels[i], 100}})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Symptom Timeline", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Symptom Timeline", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "intensity (%)"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	line.SetXAxis(labels)
	line.AddSeries("tremor", tremor)
	line.AddSeries("dyskinesia", dysk)

	if len(fog) > 0 {
		scatter := charts.NewScatter()
		scatter.AddSeries("fog", fog, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
		line.Overlap(scatter)
	}

	return line
}

// chartTimeline renders the timeline chart for the live session as an HTML
// page.
func (s *Server) chartTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	days, ok := daysParam(w, r)
	if !ok {
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	records, err := s.db.WindowsSince(s.session, since, 0)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve windows")
		return
	}
	if len(records) == 0 {
		httputil.NotFound(w, "No windows recorded in range")
		return
	}

	subtitle := fmt.Sprintf("session=%s windows=%d days=%d", s.session, len(records), days)
	var buf bytes.Buffer
	if err := TimelineChart(records, subtitle).Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
