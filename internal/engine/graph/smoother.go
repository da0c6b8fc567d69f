package graph

import "sort"

// SmoothProcessor ramps a parameter-driven constant from its previous
// value to a newly arrived target over the course of one or more
// periods, walking a precomputed, monotonically increasing
// look-up-table of intermediate values rather than interpolating
// linearly — the same curve a [param.Descriptor]'s normalized mapping
// produces, so a volume smoother ramps along the fader's own
// perceptual curve instead of its raw linear domain.
type SmoothProcessor struct {
	lut []float32

	current float32
	target  float32

	currentIndex int
	targetIndex  int
}

// NewSmoothProcessor builds a smoother seeded at current, which must
// lie within [lut[0], lut[len(lut)-1]] and lut must be sorted
// ascending with at least two entries.
func NewSmoothProcessor(lut []float32, current float32) *SmoothProcessor {
	return &SmoothProcessor{lut: lut, current: current, target: current}
}

func (*SmoothProcessor) TypeName() string { return "smooth" }
func (*SmoothProcessor) NumInputs() int   { return 0 }
func (*SmoothProcessor) NumOutputs() int  { return 1 }

func (*SmoothProcessor) EventInputs() []EventPort {
	return []EventPort{{Name: "ev", Type: EventFloat}}
}

func (*SmoothProcessor) EventOutputs() []EventPort { return nil }

func (p *SmoothProcessor) running() bool { return p.current != p.target }

// idxUp returns the index of the first lut element greater than v.
func (p *SmoothProcessor) idxUp(v float32) int {
	return sort.Search(len(p.lut), func(i int) bool { return p.lut[i] > v })
}

// idxDown returns one past the index of the last lut element less
// than v.
func (p *SmoothProcessor) idxDown(v float32) int {
	lo, hi := 0, len(p.lut)
	for lo < hi {
		mid := (lo + hi) / 2
		if p.lut[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (p *SmoothProcessor) onEvent(v float32) {
	p.target = v
	switch {
	case p.current < p.target:
		p.currentIndex = p.idxUp(p.current)
		p.targetIndex = p.idxUp(p.target)
	case p.target < p.current:
		p.currentIndex = p.idxDown(p.current)
		p.targetIndex = p.idxDown(p.target)
	}
}

// generate writes up to len(out) ramp samples, advancing toward
// target along the LUT, and settles m.current at target once the
// walk catches up.
func (p *SmoothProcessor) generate(out []float32) {
	up := p.currentIndex < p.targetIndex
	down := p.targetIndex < p.currentIndex

	var span int
	switch {
	case up:
		span = p.targetIndex - p.currentIndex
	case down:
		span = p.currentIndex - p.targetIndex
	}

	num := len(out)
	if span < num {
		num = span
	}

	switch {
	case up:
		copy(out[:num], p.lut[p.currentIndex:p.currentIndex+num])
		p.currentIndex += num
	case down:
		for i := 0; i < num; i++ {
			out[i] = p.lut[p.currentIndex-1-i]
		}
		p.currentIndex -= num
	}

	if p.currentIndex == p.targetIndex {
		p.current = p.target
		for i := num; i < len(out); i++ {
			out[i] = p.current
		}
	} else if num > 0 {
		p.current = out[num-1]
	}
}

func (p *SmoothProcessor) Process(ctx *ProcessContext) {
	out := ctx.Outputs[0]
	events := ctx.EventInputs[0].Events()

	if len(events) == 0 {
		if p.running() {
			p.generate(out)
			ctx.Results[0] = BufferResult(out)
		} else {
			ctx.Results[0] = ConstantResult(p.current)
		}
		return
	}

	pos := 0
	for _, e := range events {
		if e.Offset > pos {
			slice := out[pos:e.Offset]
			if p.running() {
				p.generate(slice)
			} else {
				for i := range slice {
					slice[i] = p.current
				}
			}
			pos = e.Offset
		}
		p.onEvent(float32(e.Value))
	}
	if pos < len(out) {
		slice := out[pos:]
		if p.running() {
			p.generate(slice)
		} else {
			for i := range slice {
				slice[i] = p.current
			}
		}
	}

	ctx.Results[0] = BufferResult(out)
}
