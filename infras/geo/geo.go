package geo

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"quickassist/config"
)

// Sample is one device position fix.
type Sample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Watcher is the device location source. Samples arrive at the
// device's own cadence until the context is cancelled; no throttling
// is applied on top.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Sample, error)
}

type simulatedWatcher struct {
	interval time.Duration
	start    Sample
}

// NewSimulated returns a watcher that random-walks from a fixed city
// coordinate, standing in for a real positioning device.
func NewSimulated(cfg *config.Config) Watcher {
	return &simulatedWatcher{
		interval: time.Duration(cfg.Geo.SampleIntervalMS) * time.Millisecond,
		start:    Sample{Latitude: -6.7924, Longitude: 39.2083},
	}
}

func (w *simulatedWatcher) Watch(ctx context.Context) (<-chan Sample, error) {
	samples := make(chan Sample)

	go func() {
		defer close(samples)

		current := w.start
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current.Latitude += (rand.Float64() - 0.5) * 0.001
				current.Longitude += (rand.Float64() - 0.5) * 0.001

				select {
				case samples <- current:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return samples, nil
}

type playbackWatcher struct {
	interval time.Duration
	route    []Sample
}

// NewPlayback replays a recorded route at the configured cadence and
// stops when the route ends. Useful for demos and deterministic
// testing of location reporting.
func NewPlayback(cfg *config.Config, route []Sample) Watcher {
	return &playbackWatcher{
		interval: time.Duration(cfg.Geo.SampleIntervalMS) * time.Millisecond,
		route:    route,
	}
}

func (w *playbackWatcher) Watch(ctx context.Context) (<-chan Sample, error) {
	if len(w.route) == 0 {
		return nil, errors.New("playback route is empty")
	}

	samples := make(chan Sample)

	go func() {
		defer close(samples)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for _, sample := range w.route {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			select {
			case samples <- sample:
			case <-ctx.Done():
				return
			}
		}
	}()

	return samples, nil
}
