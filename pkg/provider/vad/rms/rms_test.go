package rms

import (
	"errors"
	"testing"

	"github.com/MrWong99/voxa/pkg/provider/vad"
	"github.com/MrWong99/voxa/pkg/types"
)

func constFrame(n int, amp int16) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = amp
	}
	return f
}

func TestNewSession_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  vad.Config
	}{
		{"zero rate", vad.Config{SampleRate: 0, SpeechThreshold: 300}},
		{"negative threshold", vad.Config{SampleRate: 16000, SpeechThreshold: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New().NewSession(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProcessFrame_Transitions(t *testing.T) {
	sess, err := New().NewSession(vad.Config{SampleRate: 16000, FrameSizeMs: 100, SpeechThreshold: 300})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	steps := []struct {
		amp  int16
		want types.VADEventType
	}{
		{10, types.VADSilence},
		{300, types.VADSpeechStart},
		{1000, types.VADSpeechContinue},
		{299, types.VADSpeechEnd},
		{0, types.VADSilence},
		{400, types.VADSpeechStart},
	}
	for i, st := range steps {
		ev, err := sess.ProcessFrame(constFrame(1600, st.amp))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if ev.Type != st.want {
			t.Errorf("step %d (amp %d): got %v, want %v", i, st.amp, ev.Type, st.want)
		}
		if ev.Level != float64(st.amp) {
			t.Errorf("step %d: level %v, want %v", i, ev.Level, st.amp)
		}
	}
}

func TestProcessFrame_ThresholdIsInclusive(t *testing.T) {
	sess, _ := New().NewSession(vad.Config{SampleRate: 16000, SpeechThreshold: 150})
	ev, _ := sess.ProcessFrame(constFrame(160, 150))
	if !ev.IsSpeech() {
		t.Errorf("RMS equal to threshold should be speech, got %v", ev.Type)
	}
}

func TestReset(t *testing.T) {
	sess, _ := New().NewSession(vad.Config{SampleRate: 16000, SpeechThreshold: 100})
	sess.ProcessFrame(constFrame(10, 500))
	sess.Reset()
	ev, _ := sess.ProcessFrame(constFrame(10, 500))
	if ev.Type != types.VADSpeechStart {
		t.Errorf("after Reset got %v, want speech_start", ev.Type)
	}
}

func TestClose(t *testing.T) {
	sess, _ := New().NewSession(vad.Config{SampleRate: 16000, SpeechThreshold: 100})
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := sess.ProcessFrame(constFrame(10, 1)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("err = %v, want ErrSessionClosed", err)
	}
}
