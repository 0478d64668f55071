// Command report renders the symptom timeline for a stored session to a
// standalone HTML file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/api"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/db"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/fsutil"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/security"
)

var (
	dbPath    = flag.String("db", "symptom_data.db", "SQLite database path")
	sessionID = flag.String("session", "", "Session to report on (default: most recent)")
	outPath   = flag.String("out", "", "Output HTML file (default report-<session>.html)")
	days      = flag.Int("days", 7, "How many days back to include")
)

func main() {
	flag.Parse()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := render(database, fsutil.OSFileSystem{}, *sessionID, *outPath, *days); err != nil {
		log.Fatal(err)
	}
}

// render resolves the session, builds the timeline chart, and writes it
// through the filesystem abstraction.
func render(database *db.DB, fs fsutil.FileSystem, session, out string, days int) error {
	if session == "" {
		sessions, err := database.Sessions(1)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			return fmt.Errorf("no sessions in %s", *dbPath)
		}
		session = sessions[0].ID
	}

	if out == "" {
		out = fmt.Sprintf("report-%s.html", security.SanitizeFilename(session))
	}
	if err := security.ValidateExportPath(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	since := time.Now().AddDate(0, 0, -days)
	records, err := database.WindowsSince(session, since, 0)
	if err != nil {
		return fmt.Errorf("load windows: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("session %s has no windows in the last %d days", session, days)
	}

	subtitle := fmt.Sprintf("session=%s windows=%d days=%d", session, len(records), days)
	var buf bytes.Buffer
	if err := api.TimelineChart(records, subtitle).Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	if err := fs.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Printf("wrote %s (%d windows from session %s)", out, len(records), session)
	return nil
}
