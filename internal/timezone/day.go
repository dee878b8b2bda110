package timezone

import (
	"sort"
	"time"
)

// searchSpan bounds the instant search around a naive local midnight guess.
// No zone offset or transition is larger than a day.
const searchSpan = 26 * time.Hour

// Day is one calendar day in a particular zone expressed as an absolute
// half-open range [Start, End).
type Day struct {
	Start time.Time
	End   time.Time
	// Approximate is set when the exact local midnights could not be located
	// and the bounds were derived from a fixed offset instead.
	Approximate bool
}

// Last returns the last whole second of the day (local 23:59:59).
func (d Day) Last() time.Time {
	return d.End.Add(-time.Second)
}

// Contains reports whether t falls within the day.
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// DayBounds returns the local calendar day containing now, in loc, as
// absolute UTC instants. The result does not depend on the process zone and
// is exact across DST transitions: the range is 23 or 25 hours long on
// transition days.
func DayBounds(now time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()

	start, ok1 := firstInstantOf(y, m, d, loc)
	end, ok2 := firstInstantOf(y, m, d+1, loc)
	if ok1 && ok2 {
		return Day{Start: start.UTC(), End: end.UTC()}
	}

	// Fall back to the offset in effect at now.
	_, offset := now.In(loc).Zone()
	fixed := time.FixedZone("", offset)
	return Day{
		Start:       time.Date(y, m, d, 0, 0, 0, 0, fixed).UTC(),
		End:         time.Date(y, m, d+1, 0, 0, 0, 0, fixed).UTC(),
		Approximate: true,
	}
}

// firstInstantOf finds the earliest instant whose local date in loc is
// (y, m, d), searching a bounded window around the naive guess. Normally
// that instant is 00:00:00; where midnight is skipped by a DST jump it is
// the first existing local time of the day.
func firstInstantOf(y int, m time.Month, d int, loc *time.Location) (time.Time, bool) {
	target := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	guess := time.Date(y, m, d, 0, 0, 0, 0, loc)

	lo := guess.Add(-searchSpan).Unix()
	hi := guess.Add(searchSpan).Unix()

	reached := func(sec int64) bool {
		ly, lm, ld := time.Unix(sec, 0).In(loc).Date()
		return !time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC).Before(target)
	}
	if reached(lo) || !reached(hi) {
		return time.Time{}, false
	}

	n := int(hi - lo)
	i := sort.Search(n+1, func(i int) bool { return reached(lo + int64(i)) })
	found := time.Unix(lo+int64(i), 0).In(loc)

	fy, fm, fd := found.Date()
	if fy != target.Year() || fm != target.Month() || fd != target.Day() {
		return time.Time{}, false
	}
	return found, true
}
