package app

import (
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/pkg/audio/recorder"
)

// RecorderConfig maps the recorder section of the config onto the defaults
// of the selected policy. Zero fields keep the policy default, a set
// threshold or grace period is used as is (0 included), and a negative max
// duration disables the cap.
func RecorderConfig(rc config.RecorderConfig) (recorder.Config, error) {
	p, err := recorder.ParsePolicy(rc.Policy)
	if err != nil {
		return recorder.Config{}, err
	}
	cfg := recorder.DefaultConfig(p)
	if rc.SampleRate > 0 {
		cfg.SampleRate = rc.SampleRate
	}
	if rc.FrameDuration > 0 {
		cfg.FrameDuration = rc.FrameDuration
	}
	if rc.Threshold != nil {
		cfg.Threshold = *rc.Threshold
	}
	if rc.SilenceDuration > 0 {
		cfg.SilenceDuration = rc.SilenceDuration
	}
	if rc.GracePeriod != nil {
		cfg.GracePeriod = *rc.GracePeriod
	}
	switch {
	case rc.MaxDuration > 0:
		cfg.MaxDuration = rc.MaxDuration
	case rc.MaxDuration < 0:
		cfg.MaxDuration = 0
	}
	return cfg, cfg.Validate()
}
