package serialmux

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/ingest"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/units"
)

// CurrentStatus holds the latest status values received from the device
// and is intentionally package-level so admin routes or tests can inspect it.
var CurrentStatus map[string]any

// HandleSample parses a sample line, converts it to milli-g, and feeds it to
// the detection pipeline. Window results surface through the pipeline's
// result callback, not here.
func HandleSample(p *monitor.Pipeline, sourceUnits string, payload string) error {
	reading, err := ingest.ParseReading(payload)
	if err != nil {
		return fmt.Errorf("failed to parse sample line: %w", err)
	}
	p.PushSample(units.ToMilliG(reading.Magnitude, sourceUnits))
	return nil
}

// HandleStatus merges a JSON status event from the bridge into CurrentStatus.
func HandleStatus(p *monitor.Pipeline, payload string) error {
	var statusValues map[string]any

	if err := json.Unmarshal([]byte(payload), &statusValues); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %v", err)
	}

	// update the current state with the new status values
	if CurrentStatus == nil {
		CurrentStatus = make(map[string]any)
	}
	for k, v := range statusValues {
		CurrentStatus[k] = v
	}

	// flag a sampling rate disagreement between bridge and pipeline
	if status, err := ingest.ParseStatus(payload); err == nil {
		if status.Rate > 0 && status.Rate != p.Config().SampleRate {
			log.Printf("bridge reports %.0f Hz but pipeline expects %.0f Hz", status.Rate, p.Config().SampleRate)
		}
	}

	// log the current line
	log.Printf("Status Line: %+v", payload)

	return nil
}

func HandleEvent(p *monitor.Pipeline, sourceUnits string, payload string) error {
	switch ClassifyPayload(payload) {
	case EventTypeSample:
		if err := HandleSample(p, sourceUnits, payload); err != nil {
			return fmt.Errorf("failed to handle sample event: %v", err)
		}
	case EventTypeStatus:
		if err := HandleStatus(p, payload); err != nil {
			return fmt.Errorf("failed to handle status event: %v", err)
		}
	default:
		log.Printf("unknown event type: %s", payload)
	}
	return nil
}
