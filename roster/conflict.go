/*
conflict.go - Shift interval overlap detection

PURPOSE:
  Decides whether a candidate shift interval collides with an employee's
  existing non-cancelled shifts. Used as the gate in bulk assignment:
  conflicting candidates are rejected per-employee while the rest of the
  batch proceeds.

OVERLAP RULE:
  Two intervals conflict when any of:
    1. The candidate's start falls inside an existing interval
    2. The candidate's end falls inside an existing interval
    3. The candidate fully contains an existing interval

  Boundary equality counts as a conflict: a shift ending at 17:00 and a
  candidate starting at 17:00 are treated as overlapping. Back-to-back
  shifts must be scheduled with a gap.

SEE ALSO:
  - assign.go: Applies this gate during bulk assignment
*/
package roster

import "time"

// overlaps reports whether [candStart, candEnd] collides with [start, end].
// All boundaries are inclusive: touching intervals conflict.
func overlaps(candStart, candEnd, start, end time.Time) bool {
	// Candidate start inside existing
	if !candStart.Before(start) && !candStart.After(end) {
		return true
	}
	// Candidate end inside existing
	if !candEnd.Before(start) && !candEnd.After(end) {
		return true
	}
	// Candidate fully contains existing
	if !candStart.After(start) && !candEnd.Before(end) {
		return true
	}
	return false
}

// Conflicts reports whether the candidate interval collides with any
// non-cancelled shift in existing. Cancelled shifts never conflict.
func Conflicts(candStart, candEnd time.Time, existing []Shift) bool {
	_, found := FirstConflict(candStart, candEnd, existing)
	return found
}

// FirstConflict returns the first non-cancelled shift colliding with the
// candidate interval, if any.
func FirstConflict(candStart, candEnd time.Time, existing []Shift) (Shift, bool) {
	for _, s := range existing {
		if s.Status == ShiftCancelled {
			continue
		}
		start, end := s.Interval()
		if overlaps(candStart, candEnd, start, end) {
			return s, true
		}
	}
	return Shift{}, false
}
