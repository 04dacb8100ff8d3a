package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var weekdayNamesES = map[string]string{
	"monday":    "lunes",
	"tuesday":   "martes",
	"wednesday": "miércoles",
	"thursday":  "jueves",
	"friday":    "viernes",
	"saturday":  "sábado",
	"sunday":    "domingo",
}

var weekdayOrder = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// Result is the outcome of validating a requested fulfillment slot.
type Result struct {
	OK      bool
	Reason  enums.ScheduleReason
	Message string
}

// Validate checks the order's requested date and time against the weekly
// schedule. Missing or malformed date/time fields pass silently; eliciting
// them is the conversation's job, not the validator's. Any internal
// inconsistency fails open so scheduling never blocks a reply.
func Validate(order types.OrderDraft, week types.WeekSchedule, loc *time.Location) Result {
	date := strings.TrimSpace(order.ScheduledDate)
	clock := strings.TrimSpace(order.ScheduledTime)
	if date == "" || clock == "" {
		return Result{OK: true}
	}
	if loc == nil {
		loc = time.UTC
	}

	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return Result{OK: true}
	}
	requested, err := time.Parse(timeLayout, clock)
	if err != nil {
		return Result{OK: true}
	}

	weekday := strings.ToLower(day.Weekday().String())
	ranges := week[weekday]
	if len(ranges) == 0 {
		return Result{
			OK:      false,
			Reason:  enums.ScheduleReasonDayClosed,
			Message: dayClosedMessage(weekday, week),
		}
	}

	minutes := requested.Hour()*60 + requested.Minute()
	for _, r := range ranges {
		from, fromErr := parseMinutes(r.From)
		to, toErr := parseMinutes(r.To)
		if fromErr != nil || toErr != nil {
			// Broken configuration: fail open rather than reject the order.
			return Result{OK: true}
		}
		if minutes >= from && minutes <= to {
			return Result{OK: true}
		}
	}

	return Result{
		OK:      false,
		Reason:  enums.ScheduleReasonTimeOutsideRanges,
		Message: timeOutsideMessage(weekday, ranges),
	}
}

func parseMinutes(value string) (int, error) {
	parsed, err := time.Parse(timeLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

func dayClosedMessage(weekday string, week types.WeekSchedule) string {
	var days []string
	for _, name := range weekdayOrder {
		ranges := week[name]
		if len(ranges) == 0 {
			continue
		}
		days = append(days, fmt.Sprintf("%s %s", weekdayNamesES[name], formatRanges(ranges)))
	}
	if len(days) == 0 {
		return fmt.Sprintf("Los %s no atendemos y no hay horarios configurados.", weekdayNamesES[weekday])
	}
	return fmt.Sprintf("Los %s no atendemos. Nuestros horarios son: %s.", weekdayNamesES[weekday], strings.Join(days, "; "))
}

func timeOutsideMessage(weekday string, ranges []types.TimeRange) string {
	return fmt.Sprintf("Ese horario está fuera de nuestra atención del %s: %s.", weekdayNamesES[weekday], formatRanges(ranges))
}

func formatRanges(ranges []types.TimeRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, fmt.Sprintf("%s a %s", r.From, r.To))
	}
	return strings.Join(parts, " y ")
}
