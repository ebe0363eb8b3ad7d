package day

import (
	"time"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/recur"
)

// BusySlices divides day into n equal slices and marks the ones any
// appointment overlaps. An appointment ending exactly on a slice boundary
// does not mark the slice that starts there.
func BusySlices(cal *calendar.Calendar, day time.Time, n int) []bool {
	if n <= 0 {
		return nil
	}
	slices := make([]bool, n)
	start := date.DayStart(day.In(cal.Location()))
	dayLen := date.NextDay(start).Sub(start)
	sliceLen := dayLen / time.Duration(n)

	mark := func(from, to time.Time) {
		first := time.Duration(0)
		if from.After(start) {
			first = from.Sub(start)
		}
		last := dayLen - time.Second
		if end := to.Sub(start); end < dayLen {
			last = end
		}
		if last > first {
			last -= time.Second
		}
		if last < first {
			return
		}
		i, j := int(first/sliceLen), int(last/sliceLen)
		if j >= n {
			j = n - 1
		}
		for k := i; k <= j; k++ {
			slices[k] = true
		}
	}

	cal.RecurApts.ForEach(func(r *model.RecurApt) {
		if r.Rule.Validate() != nil {
			return
		}
		if occ, ok := recur.FindSpanning(r.Rule, r.Start, r.Dur, r.Exc, start); ok {
			mark(occ, occ.Add(r.Dur))
		}
	})
	cal.Apts.ForEach(func(a *model.Appointment) {
		if calendar.AppointmentCovers(a, start) {
			mark(a.Start, a.End())
		}
	})
	return slices
}
