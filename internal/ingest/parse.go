// Package ingest parses the line protocol spoken by the serial IMU bridge
// and synthesizes test signals. The bridge emits one reading per line:
// either four CSV fields (uptime and three axis values in the configured
// units) or two fields (uptime and a precomputed scalar). Lines beginning
// with '{' are JSON status events, not samples.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrEmptyLine  = errors.New("empty line")
	ErrFieldCount = errors.New("unexpected field count")
)

// Reading is one acceleration sample from the bridge. Magnitude is the
// scalar channel value consumed by the detection pipeline; for triaxial
// lines it is the vector magnitude of the three axes.
type Reading struct {
	// Uptime is seconds since bridge boot.
	Uptime float64
	// Magnitude is the scalar acceleration value in the bridge's units.
	Magnitude float64
}

// Status is a JSON status event from the bridge.
type Status struct {
	Clock  float64 `json:"clock"`
	Sensor string  `json:"sensor,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
}

// IsStatus reports whether the line is a JSON status event rather than a
// sample.
func IsStatus(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "{")
}

// ParseStatus decodes a JSON status line.
func ParseStatus(line string) (Status, error) {
	var s Status
	if err := json.Unmarshal([]byte(line), &s); err != nil {
		return Status{}, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return s, nil
}

// ParseReading decodes a sample line. Two-field lines carry a precomputed
// scalar; four-field lines carry three axes that are collapsed to their
// vector magnitude.
func ParseReading(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, ErrEmptyLine
	}

	segments := strings.Split(line, ",")
	fields := make([]float64, len(segments))
	for i, seg := range segments {
		v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("failed to parse field %d of %q: %w", i, line, err)
		}
		fields[i] = v
	}

	switch len(fields) {
	case 2:
		return Reading{Uptime: fields[0], Magnitude: fields[1]}, nil
	case 4:
		mag := math.Sqrt(fields[1]*fields[1] + fields[2]*fields[2] + fields[3]*fields[3])
		return Reading{Uptime: fields[0], Magnitude: mag}, nil
	default:
		return Reading{}, fmt.Errorf("%d fields in %q: %w", len(fields), line, ErrFieldCount)
	}
}
