package imports

import "sort"

// Shift records text inserted into a document: Width bytes were inserted
// in front of the original byte offset Position.
type Shift struct {
	Position int
	Width    int
}

// Ledger translates byte offsets between an original document and a
// rewritten copy of it. Shifts are kept sorted by Position.
type Ledger struct {
	shifts []Shift
}

// NewLedger builds a ledger from shifts in any order.
func NewLedger(shifts ...Shift) *Ledger {
	l := &Ledger{shifts: append([]Shift(nil), shifts...)}
	sort.SliceStable(l.shifts, func(i, j int) bool {
		return l.shifts[i].Position < l.shifts[j].Position
	})
	return l
}

// Record appends a shift. Positions must not decrease.
func (l *Ledger) Record(position, width int) {
	l.shifts = append(l.shifts, Shift{Position: position, Width: width})
}

// Shifts returns a copy of the recorded shifts.
func (l *Ledger) Shifts() []Shift {
	return append([]Shift(nil), l.shifts...)
}

// Len returns the number of shifts.
func (l *Ledger) Len() int {
	return len(l.shifts)
}

// Total is the number of bytes inserted overall.
func (l *Ledger) Total() int {
	total := 0
	for _, s := range l.shifts {
		total += s.Width
	}
	return total
}

// ToVirtual maps an original offset to the rewritten text. Text inserted at
// an offset precedes it.
func (l *Ledger) ToVirtual(offset int) int {
	n := sort.Search(len(l.shifts), func(i int) bool {
		return l.shifts[i].Position > offset
	})
	shifted := offset
	for _, s := range l.shifts[:n] {
		shifted += s.Width
	}
	return shifted
}

// ToOriginal maps an offset in the rewritten text back to the original.
// Offsets inside inserted text map to the position it was inserted at.
func (l *Ledger) ToOriginal(offset int) int {
	shift := 0
	for _, s := range l.shifts {
		start := s.Position + shift
		if offset < start {
			break
		}
		if offset < start+s.Width {
			return s.Position
		}
		shift += s.Width
	}
	return offset - shift
}
