// Package notify publishes detection results to external consumers. The
// wearable exposes per-symptom notification channels; this package maps
// them onto MQTT topics, webhooks, and the process log. Publish failures
// are reported to the caller but must never stop the pipeline, so the
// daemon logs and continues.
package notify

import (
	"context"
	"errors"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitoring"
)

// Publisher delivers window results and closed episodes to one sink.
type Publisher interface {
	PublishResult(ctx context.Context, r monitor.WindowResult) error
	PublishEpisode(ctx context.Context, e monitor.Episode) error
	Close() error
}

// LogPublisher writes detections to the process log. Non-symptom windows
// are suppressed to keep the log readable at one window every few seconds.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) PublishResult(_ context.Context, r monitor.WindowResult) error {
	if !r.Outcome.IsSymptom() {
		return nil
	}
	switch r.Outcome {
	case monitor.OutcomeTremor:
		monitoring.Logf("window %d: tremor intensity %d%%", r.Seq, r.Detection.TremorIntensity)
	case monitor.OutcomeDyskinesia:
		monitoring.Logf("window %d: dyskinesia intensity %d%%", r.Seq, r.Detection.DyskinesiaIntensity)
	case monitor.OutcomeFOG:
		monitoring.Logf("window %d: freezing of gait", r.Seq)
	}
	return nil
}

func (p *LogPublisher) PublishEpisode(_ context.Context, e monitor.Episode) error {
	monitoring.Logf("episode ended: %s over %d windows (peak %d%%, %s)",
		e.Symptom, e.Windows, e.PeakIntensity, e.Duration())
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// MultiPublisher fans out to several publishers. Every publisher sees
// every result; errors are collected rather than short-circuiting.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) PublishResult(ctx context.Context, r monitor.WindowResult) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishResult(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) PublishEpisode(ctx context.Context, e monitor.Episode) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishEpisode(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
