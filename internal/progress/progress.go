// Package progress estimates completion times for long-running epoch loops.
package progress

import (
	"fmt"
	"time"
)

// PredictEnd extrapolates when the last of epochs finishes, given that epoch
// (zero-based) has just completed and the loop began at start.
func PredictEnd(now, start time.Time, epoch, epochs int) time.Time {
	if epoch < 0 || epochs <= epoch {
		return now
	}

	taken := now.Sub(start)
	perEpoch := taken / time.Duration(epoch+1)

	return now.Add(perEpoch * time.Duration(epochs-epoch-1))
}

// FormatDuration renders d in whole hours above two hours, in whole minutes
// above two minutes and in whole seconds otherwise. Units are truncated.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)

	switch {
	case secs > 7200:
		return fmt.Sprintf("%d hours", secs/3600)
	case secs > 120:
		return fmt.Sprintf("%d minutes", secs/60)
	default:
		return fmt.Sprintf("%d seconds", secs)
	}
}

// Tracker reports per-epoch ETAs against a fixed start time.
type Tracker struct {
	start  time.Time
	epochs int
	now    func() time.Time
}

// NewTracker starts tracking a loop of epochs iterations.
func NewTracker(epochs int) *Tracker {
	return newTracker(epochs, time.Now)
}

func newTracker(epochs int, now func() time.Time) *Tracker {
	return &Tracker{start: now(), epochs: epochs, now: now}
}

// Estimate is the result of marking an epoch done.
type Estimate struct {
	Elapsed   time.Duration
	Remaining time.Duration
	End       time.Time
}

// Done records that epoch has completed and returns the updated estimate.
func (t *Tracker) Done(epoch int) Estimate {
	now := t.now()
	end := PredictEnd(now, t.start, epoch, t.epochs)

	return Estimate{
		Elapsed:   now.Sub(t.start),
		Remaining: end.Sub(now),
		End:       end,
	}
}
