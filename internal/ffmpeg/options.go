package ffmpeg

import (
	"fmt"
	"slices"
)

// OptionType is a behaviour flag applied to the capture input.
type OptionType string

const (
	// OptionNoBuffer disables input buffering so the analyser sees fresh audio.
	OptionNoBuffer OptionType = "no_buffer"
	// OptionWallclockTimestamps stamps packets with the wallclock. Useful for
	// devices that report broken timestamps.
	OptionWallclockTimestamps OptionType = "wallclock_timestamps"
	// OptionRealtime reads lavfi sources at native rate instead of as fast as possible.
	OptionRealtime OptionType = "realtime"
)

var knownOptions = []OptionType{OptionNoBuffer, OptionWallclockTimestamps, OptionRealtime}

// ValidateOptions rejects unknown and duplicated options.
func ValidateOptions(options []OptionType) error {
	seen := make(map[OptionType]bool, len(options))
	for _, opt := range options {
		if !slices.Contains(knownOptions, opt) {
			return fmt.Errorf("unknown ffmpeg option: %q", opt)
		}
		if seen[opt] {
			return fmt.Errorf("duplicate ffmpeg option: %q", opt)
		}
		seen[opt] = true
	}
	return nil
}

// inputArgs returns the arguments an option contributes before -i.
func (o OptionType) inputArgs() []string {
	switch o {
	case OptionNoBuffer:
		return []string{"-fflags", "nobuffer", "-flags", "low_delay"}
	case OptionWallclockTimestamps:
		return []string{"-use_wallclock_as_timestamps", "1"}
	case OptionRealtime:
		return []string{"-re"}
	}
	return nil
}
