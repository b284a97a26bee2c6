package reconcile

import "fmt"

// Policy is the global shift policy every worker is measured against.
// All values are minutes from local midnight.
type Policy struct {
	ShiftStartMinutes int
	LateGraceMinutes  int
	ShiftEndMinutes   int
}

// LateThresholdMinutes is the shift start pushed out by the grace period
func (p Policy) LateThresholdMinutes() int {
	return p.ShiftStartMinutes + p.LateGraceMinutes
}

// Validate enforces shiftStart < lateThreshold < shiftEnd
func (p Policy) Validate() error {
	if p.LateGraceMinutes <= 0 {
		return fmt.Errorf("late grace must be positive, got %d", p.LateGraceMinutes)
	}
	if p.ShiftStartMinutes < 0 || p.ShiftEndMinutes > 24*60 {
		return fmt.Errorf("shift window %d..%d is outside the day", p.ShiftStartMinutes, p.ShiftEndMinutes)
	}
	if p.LateThresholdMinutes() >= p.ShiftEndMinutes {
		return fmt.Errorf("late threshold %d must fall before shift end %d", p.LateThresholdMinutes(), p.ShiftEndMinutes)
	}
	return nil
}
