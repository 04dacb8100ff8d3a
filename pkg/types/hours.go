package types

// TimeRange is one opening window in 24h "HH:MM" notation. Bounds are
// inclusive on both ends.
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WeekSchedule maps lowercase English weekday names ("monday") to that
// day's opening windows, at most two per day. A missing day is closed.
type WeekSchedule map[string][]TimeRange
