package months

import (
	"fmt"
	"time"
)

// Month is a calendar month, the unit the portal serves movement history in.
type Month struct {
	Year  int
	Month time.Month
}

// Of returns the month containing t.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// String formats the month like "2021-07".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// index numbers months consecutively so month arithmetic never touches
// day-of-month normalization.
func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

func fromIndex(i int) Month {
	return Month{Year: i / 12, Month: time.Month(i%12 + 1)}
}

// Plan returns every month from the month containing to down to the month
// containing from, most recent first. The sequence is gap-free and strictly
// decreasing; from and to inside the same month yield a single entry, and a
// to earlier than from yields nil.
func Plan(from, to time.Time) []Month {
	lo := Of(from).index()
	hi := Of(to).index()
	if hi < lo {
		return nil
	}
	plan := make([]Month, 0, hi-lo+1)
	for i := hi; i >= lo; i-- {
		plan = append(plan, fromIndex(i))
	}
	return plan
}
