// Package api serves the monitoring HTTP surface: pipeline status, stored
// windows and episodes, live result streaming, and bridge passthrough.
package api

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/db"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/httputil"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/serialmux"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	m       serialmux.SerialMuxInterface
	db      *db.DB
	p       *monitor.Pipeline
	hub     *Hub
	session string
	units   string
	started time.Time

	// episode reports the in-progress episode, if any. Optional; wired by
	// the daemon once the episode tracker exists.
	episode func() (monitor.Episode, bool)
}

func NewServer(m serialmux.SerialMuxInterface, database *db.DB, p *monitor.Pipeline, sessionID, units string) *Server {
	return &Server{
		m:       m,
		db:      database,
		p:       p,
		hub:     NewHub(),
		session: sessionID,
		units:   units,
		started: time.Now(),
	}
}

// Publish forwards a completed window to stream subscribers. It is called
// from the pipeline result callback.
func (s *Server) Publish(r monitor.WindowResult) {
	s.hub.Broadcast(r)
}

// SetEpisodeSource wires the live-episode lookup used by /api/status.
func (s *Server) SetEpisodeSource(f func() (monitor.Episode, bool)) {
	s.episode = f
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/windows", s.listWindows)
	mux.HandleFunc("/api/episodes", s.listEpisodes)
	mux.HandleFunc("/api/rollup", s.showRollup)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	mux.HandleFunc("/api/stream", s.streamWindows)
	mux.HandleFunc("/api/charts/timeline", s.chartTimeline)
	return mux
}

// daysParam parses the optional "days" query parameter, defaulting to 1.
// Returns false after writing an error response if the value is invalid.
func daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	days := 1
	if d := r.URL.Query().Get("days"); d != "" {
		parsedDays, err := strconv.Atoi(d)
		if err != nil || parsedDays < 1 {
			httputil.BadRequest(w, "Invalid 'days' parameter")
			return 0, false
		}
		days = parsedDays
	}
	return days, true
}

// limitParam parses the optional "limit" query parameter. Returns false
// after writing an error response if the value is invalid.
func limitParam(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	limit := fallback
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return 0, false
		}
		limit = parsedLimit
	}
	return limit, true
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	status := map[string]interface{}{
		"service":     "monitord",
		"version":     version.Version,
		"git_sha":     version.GitSHA,
		"session_id":  s.session,
		"units":       s.units,
		"uptime_sec":  time.Since(s.started).Seconds(),
		"windows":     s.p.Windows(),
		"state":       s.p.State(),
		"subscribers": s.hub.Count(),
	}

	if sensor := serialmux.CurrentStatus; sensor != nil {
		status["sensor"] = sensor
	}

	if s.episode != nil {
		if ep, ok := s.episode(); ok {
			status["episode"] = ep
		}
	}

	latest, err := s.db.LatestWindow(s.session)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve latest window")
		return
	}
	if latest != nil {
		status["latest"] = latest
	}

	httputil.WriteJSONOK(w, status)
}

func (s *Server) listWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit, ok := limitParam(w, r, 100)
	if !ok {
		return
	}

	records, err := s.db.RecentWindows(s.session, limit)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve windows")
		return
	}
	if records == nil {
		records = []db.WindowRecord{}
	}

	httputil.WriteJSONOK(w, records)
}

func (s *Server) listEpisodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r, 100)
	if !ok {
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	episodes, err := s.db.EpisodesSince(s.session, since, limit)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve episodes")
		return
	}
	if episodes == nil {
		episodes = []db.EpisodeRecord{}
	}

	httputil.WriteJSONOK(w, episodes)
}

// rollupEntry augments the stored rollup with the wall-clock time covered,
// derived from the window length.
type rollupEntry struct {
	db.RollupRow
	Seconds float64 `json:"seconds"`
}

func (s *Server) showRollup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	days, ok := daysParam(w, r)
	if !ok {
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	rollup, err := s.db.SymptomRollup(s.session, since)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve rollup")
		return
	}

	cfg := s.p.Config()
	windowSeconds := float64(cfg.WindowSize) / cfg.SampleRate

	entries := make([]rollupEntry, len(rollup))
	for i, row := range rollup {
		entries[i] = rollupEntry{
			RollupRow: row,
			Seconds:   float64(row.Windows) * windowSeconds,
		}
	}

	httputil.WriteJSONOK(w, entries)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit, ok := limitParam(w, r, 20)
	if !ok {
		return
	}

	sessions, err := s.db.Sessions(limit)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve sessions")
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}

	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	cfg := s.p.Config()
	config := map[string]interface{}{
		"units":             s.units,
		"session_id":        s.session,
		"sample_rate":       cfg.SampleRate,
		"window_size":       cfg.WindowSize,
		"fft_size":          cfg.FFTSize,
		"bands":             cfg.Bands,
		"action_threshold":  cfg.ActionThreshold,
		"walk_threshold":    cfg.WalkThreshold,
		"freeze_ratio":      cfg.FreezeRatio,
		"intensity_divisor": cfg.IntensityDivisor,
		"stillness_stddev":  cfg.StillnessStdDev,
	}

	httputil.WriteJSONOK(w, config)
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := r.FormValue("command")

	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}
