package session

import "time"

// LoadingLabel is shown while no graph has been fetched.
const LoadingLabel = "Loading"

// TimeWindow is the metrics range of a snapshot in epoch milliseconds.
type TimeWindow struct {
	StartMs int64 `json:"start"`
	EndMs   int64 `json:"end"`
}

// WindowFor returns the window ending at timestamp (seconds) and spanning
// duration (seconds). It is undefined while timestamp is 0.
func WindowFor(timestamp, duration int64) (TimeWindow, bool) {
	if timestamp == 0 {
		return TimeWindow{}, false
	}
	end := timestamp * 1000
	return TimeWindow{StartMs: end - duration*1000, EndMs: end}, true
}

// Start returns the window start.
func (w TimeWindow) Start() time.Time {
	return time.UnixMilli(w.StartMs)
}

// End returns the window end.
func (w TimeWindow) End() time.Time {
	return time.UnixMilli(w.EndMs)
}

// RangeLabel formats the window as "Jan 2 15:04:05 - 15:05:05". The end
// date is repeated only when it differs from the start date. A nil loc
// means UTC.
func RangeLabel(w TimeWindow, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	start := w.Start().In(loc)
	end := w.End().In(loc)

	endLayout := "15:04:05"
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		endLayout = "Jan 2 15:04:05"
	}
	return start.Format("Jan 2 15:04:05") + " - " + end.Format(endLayout)
}

// Header returns the label for the card header: LoadingLabel before the
// first fetch, the formatted range afterwards.
func (s *State) Header(loc *time.Location) string {
	w, ok := s.Window()
	if !ok {
		return LoadingLabel
	}
	return RangeLabel(w, loc)
}
