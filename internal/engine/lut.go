package engine

import "github.com/dkotrev/piejam-engine-go/internal/param"

// lutSteps is the resolution of every [graph.SmoothProcessor] look-up
// table the orchestrator builds. 512 steps means a full-scale ramp
// takes at most 512 samples (about 11ms at 48kHz) to settle, well
// under the ~20ms audible-zipper threshold a volume/pan/gate ramp
// needs to beat.
const lutSteps = 512

// floatLUT samples d's normalized-to-domain mapping at lutSteps
// evenly spaced points, giving a [graph.SmoothProcessor] a table that
// walks the parameter's own perceptual curve (e.g. a fader's dB
// taper) rather than a linear one.
func floatLUT(d param.Descriptor[float64]) []float32 {
	lut := make([]float32, lutSteps)
	for i := range lut {
		n := float64(i) / float64(lutSteps-1)
		lut[i] = float32(d.Denormalize(n))
	}
	return lut
}

// linearLUT builds a plain ascending ramp from lo to hi, for gain
// values the orchestrator derives itself (pan-law splits, the solo/
// mute audibility gate, aux-send taps) rather than reading from a
// registered parameter descriptor.
func linearLUT(lo, hi float32) []float32 {
	lut := make([]float32, lutSteps)
	for i := range lut {
		n := float32(i) / float32(lutSteps-1)
		lut[i] = lo + n*(hi-lo)
	}
	return lut
}
