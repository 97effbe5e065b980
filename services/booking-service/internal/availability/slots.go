package availability

// Span is a half-open range of the day, [Start, End).
type Span struct {
	Start Clock
	End   Clock
}

func (s Span) overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// FreeStarts walks [open, closing) in steps of step minutes and returns each
// start whose length-minute span fits before closing and overlaps nothing in
// busy.
func FreeStarts(open, closing Clock, length, step int, busy []Span) []Clock {
	if length <= 0 || step <= 0 || closing <= open {
		return nil
	}
	var out []Clock
	for t := open; t+Clock(length) <= closing; t += Clock(step) {
		if !overlapsAny(Span{Start: t, End: t + Clock(length)}, busy) {
			out = append(out, t)
		}
	}
	return out
}

func overlapsAny(s Span, busy []Span) bool {
	for _, b := range busy {
		if s.overlaps(b) {
			return true
		}
	}
	return false
}
