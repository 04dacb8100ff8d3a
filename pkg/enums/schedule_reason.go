package enums

// ScheduleReason explains why a requested fulfillment slot was rejected.
type ScheduleReason string

const (
	ScheduleReasonDayClosed         ScheduleReason = "day_closed"
	ScheduleReasonTimeOutsideRanges ScheduleReason = "time_outside_ranges"
)

// String implements fmt.Stringer.
func (r ScheduleReason) String() string {
	return string(r)
}
