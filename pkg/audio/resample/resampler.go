// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries the last frame and fractional position across buffers
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates.
// It is stateful: consecutive calls to Resample continue the same signal, so
// chunk boundaries do not produce clicks. Not safe for concurrent use.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	step       float64 // input frames advanced per output frame
	position   float64 // read position; index 0 is lastFrame once primed
	lastFrame  []int32
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels <= 0 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int32, channels),
	}
}

// InputRate returns the rate samples are expected in
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the rate samples are produced at
func (r *Resampler) OutputRate() int { return r.outputRate }

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Resample converts interleaved input samples into output and returns the
// number of samples written. output should hold at least
// OutputSamplesNeeded(len(input)) samples; production stops early otherwise.
func (r *Resampler) Resample(input []int32, output []int32) int {
	if len(input) == 0 {
		return 0
	}

	if r.Passthrough() {
		return copy(output, input)
	}

	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}

	offset := 0
	if r.primed {
		offset = 1
	}
	available := inputFrames + offset

	frame := func(i, ch int) int32 {
		if r.primed {
			if i == 0 {
				return r.lastFrame[ch]
			}
			i--
		}
		return input[i*r.channels+ch]
	}

	outputFrames := len(output) / r.channels
	outIdx := 0
	for outIdx < outputFrames {
		idx := int(r.position)
		if idx+1 >= available {
			break
		}

		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(frame(idx, ch))
			s2 := float64(frame(idx+1, ch))
			output[outIdx*r.channels+ch] = int32(s1*(1.0-frac) + s2*frac)
		}

		outIdx++
		r.position += r.step
	}

	// The last input frame becomes index 0 of the next call
	copy(r.lastFrame, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.position -= float64(available - 1)
	if r.position < 0 {
		r.position = 0
	}
	r.primed = true

	return outIdx * r.channels
}

// Reset drops the carried frame so the next buffer starts a new signal
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputSamplesNeeded returns an upper bound of the samples produced for inputSamples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	if r.Passthrough() {
		return inputSamples
	}
	inputFrames := inputSamples/r.channels + 1
	outputFrames := int(math.Ceil(float64(inputFrames)/r.step)) + 1
	return outputFrames * r.channels
}

// InputSamplesNeeded estimates the input samples consumed to produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(math.Ceil(float64(outputFrames) * r.step))
	return inputFrames * r.channels
}
