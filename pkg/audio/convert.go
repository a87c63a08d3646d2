package audio

import (
	"encoding/binary"
	"math"
)

// SamplesToBytes encodes int16 samples as little-endian PCM bytes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToSamples decodes little-endian PCM bytes into int16 samples. A
// trailing odd byte is ignored.
func BytesToSamples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// StereoToMono averages interleaved L/R pairs into mono samples.
// Uses int32 arithmetic so the average cannot overflow.
func StereoToMono(interleaved []int16) []int16 {
	frames := len(interleaved) / 2
	out := make([]int16, frames)
	for i := range frames {
		l := int32(interleaved[i*2])
		r := int32(interleaved[i*2+1])
		out[i] = int16((l + r) / 2)
	}
	return out
}

// ResampleMono16 resamples mono samples from srcRate to dstRate using linear
// interpolation. If the rates match or either is invalid the input is
// returned unchanged.
func ResampleMono16(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	n := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if n == 0 {
		return nil
	}

	out := make([]int16, n)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range n {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = int16(math.Round(float64(s0)*(1-frac) + float64(s1)*frac))
	}
	return out
}

// RMS returns the root-mean-square loudness of samples: the square root of
// the mean of the squared sample values. An empty or all-zero input yields 0.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
