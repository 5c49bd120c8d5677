package watcher

import (
	"context"
	"time"

	"github.com/ritzau/flow-builder/pkg/logging"
)

// Debouncer batches rapid file system events so an editor save reloads the page once
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is emitted after quietPeriod without
// new events, or maxWait after its first event, whichever comes first.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run owns all batch state; timers only signal through their channels
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet      *time.Timer
		deadline   *time.Timer
		quietC     <-chan time.Time
		deadlineC  <-chan time.Time
		batch      ChangeEvent
		eventCount int
		seen       = make(map[string]bool)
	)

	stopTimers := func() {
		if quiet != nil {
			quiet.Stop()
		}
		if deadline != nil {
			deadline.Stop()
		}
		quietC, deadlineC = nil, nil
	}

	flush := func() {
		stopTimers()
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount, "type", batch.Type.String())
		batch.Timestamp = time.Now()
		select {
		case d.output <- batch:
		case <-ctx.Done():
		}

		// Reset accumulators
		batch = ChangeEvent{}
		eventCount = 0
		seen = make(map[string]bool)
	}

	for {
		select {
		case <-ctx.Done():
			stopTimers()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			// Accumulate event
			if eventCount == 0 || event.Type > batch.Type {
				batch.Type = event.Type
			}
			for _, p := range event.Paths {
				if !seen[p] {
					seen[p] = true
					batch.Paths = append(batch.Paths, p)
				}
			}
			eventCount++

			// Reset quiet period timer
			if quiet == nil {
				quiet = time.NewTimer(d.quietPeriod)
			} else {
				quiet.Reset(d.quietPeriod)
			}
			quietC = quiet.C

			// Start max wait timer on first event of a batch
			if deadlineC == nil {
				if deadline == nil {
					deadline = time.NewTimer(d.maxWait)
				} else {
					deadline.Reset(d.maxWait)
				}
				deadlineC = deadline.C
			}

		case <-quietC:
			flush()

		case <-deadlineC:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
