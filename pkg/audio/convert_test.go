package audio_test

import (
	"math"
	"testing"

	"github.com/MrWong99/voxa/pkg/audio"
)

func TestSamplesBytesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	got := audio.BytesToSamples(audio.SamplesToBytes(in))
	if len(got) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], in[i])
		}
	}
}

func TestBytesToSamples_OddByteIgnored(t *testing.T) {
	got := audio.BytesToSamples([]byte{0x01, 0x00, 0xff})
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}
}

func TestStereoToMono(t *testing.T) {
	got := audio.StereoToMono([]int16{100, 200, -100, -200})
	want := []int16{150, -150}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono_NoOverflow(t *testing.T) {
	got := audio.StereoToMono([]int16{32767, 32767, -32768, -32768})
	if got[0] != 32767 || got[1] != -32768 {
		t.Errorf("got %v, want [32767 -32768]", got)
	}
}

func TestResampleMono16_SameRate(t *testing.T) {
	in := []int16{100, 200, 300}
	out := audio.ResampleMono16(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
}

func TestResampleMono16_Upsample(t *testing.T) {
	in := make([]int16, 160)
	out := audio.ResampleMono16(in, 16000, 48000)
	if len(out) != 480 {
		t.Errorf("got %d samples, want 480", len(out))
	}
}

func TestResampleMono16_Interpolates(t *testing.T) {
	out := audio.ResampleMono16([]int16{0, 100}, 1, 2)
	want := []int16{0, 50, 100, 100}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty", nil, 0},
		{"all zero", make([]int16, 1600), 0},
		{"constant", []int16{300, 300, 300, 300}, 300},
		{"sign does not matter", []int16{-300, 300, -300, 300}, 300},
		{"mixed", []int16{3, 4}, math.Sqrt(12.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.RMS(tt.samples)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMS = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMS_IdempotentAndNonNegative(t *testing.T) {
	frame := []int16{-32768, 32767, 0, -1, 1, 12000, -9000}
	first := audio.RMS(frame)
	second := audio.RMS(frame)
	if first != second {
		t.Errorf("RMS not stable: %v then %v", first, second)
	}
	if first < 0 {
		t.Errorf("RMS negative: %v", first)
	}
}
