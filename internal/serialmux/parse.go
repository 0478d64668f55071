package serialmux

import "strings"

const (
	EventTypeSample  = "sample"
	EventTypeStatus  = "status"
	EventTypeUnknown = "unknown"
)

// ClassifyPayload inspects a payload string and returns a simple event type
// token. The classification is intentionally conservative: CSV lines that
// start with a digit or sign are treated as samples, JSON objects as status
// reports from the bridge, and everything else is unknown.
func ClassifyPayload(payload string) string {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return EventTypeUnknown
	}
	if strings.HasPrefix(trimmed, "{") {
		return EventTypeStatus
	}
	if strings.Contains(trimmed, ",") {
		switch trimmed[0] {
		case '-', '+', '.', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return EventTypeSample
		}
	}
	return EventTypeUnknown
}
