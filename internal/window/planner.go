package window

import "time"

// periodFormat is the timestamp layout the upstream API expects for the
// periodStart/periodEnd query parameters.
const periodFormat = "200601021504"

// Step is the nominal width of a fetch window.
type Step int

const (
	// StepMonthly advances window starts to the first instant of the next
	// calendar month. Used by the fine-grained points sweep.
	StepMonthly Step = iota

	// StepDaily advances window starts by 24 hours. Used by the per-day sweep.
	StepDaily
)

// Window is one half-open fetch interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// PeriodStart formats the window start for the upstream query range.
func (w Window) PeriodStart() string { return w.Start.UTC().Format(periodFormat) }

// PeriodEnd formats the window end for the upstream query range.
func (w Window) PeriodEnd() string { return w.End.UTC().Format(periodFormat) }

// DateKey returns the calendar-date key of the window start, used as the
// per-day record identity in daily mode.
func (w Window) DateKey() string { return w.Start.UTC().Format("2006-01-02") }

// Planner produces the ordered sequence of fetch windows covering a
// historical range up to the present.
type Planner struct {
	step Step
}

// NewPlanner creates a planner with the given step width.
func NewPlanner(step Step) *Planner {
	return &Planner{step: step}
}

// Windows returns a lazy iterator over the contiguous, non-overlapping
// windows covering [from, now). The final window is clipped to now.
func (p *Planner) Windows(from, now time.Time) *Iterator {
	return &Iterator{
		step:    p.step,
		current: from.UTC(),
		now:     now.UTC(),
	}
}

// Iterator walks the window sequence. Iteration terminates once the next
// window start would reach or pass now.
type Iterator struct {
	step    Step
	current time.Time
	now     time.Time
}

// Next returns the next window, or false once the range is exhausted.
func (it *Iterator) Next() (Window, bool) {
	if !it.current.Before(it.now) {
		return Window{}, false
	}

	next := it.advance(it.current)
	end := next
	if end.After(it.now) {
		end = it.now
	}

	w := Window{Start: it.current, End: end}
	it.current = next
	return w, true
}

// advance computes the start of the window after one beginning at t.
func (it *Iterator) advance(t time.Time) time.Time {
	switch it.step {
	case StepMonthly:
		// First instant of the next calendar month. A mid-month start gets
		// a first window clipped to the month boundary so that subsequent
		// windows align with whole months.
		y, m, _ := t.Date()
		return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.Add(24 * time.Hour)
	}
}
