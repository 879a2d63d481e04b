package ffmpeg

// Params describes an ffmpeg invocation that decodes a capture input into raw
// little-endian 16-bit PCM on stdout.
type Params struct {
	// Binary is the ffmpeg executable. Empty means "ffmpeg" from PATH.
	Binary string

	// Input Configuration
	InputFormat string // alsa, pulse, lavfi
	Device      string // hw:1,0, default, sine=frequency=440
	SampleRate  int    // 48000
	Channels    int    // 1 = downmix to mono

	// AudioFilters is passed through as -af.
	AudioFilters string

	// LogLevel is the ffmpeg -loglevel value without the "level+" prefix.
	LogLevel string

	Options []OptionType
}

// Defaults for capture parameters left empty.
const (
	DefaultInputFormat = "alsa"
	DefaultDevice      = "default"
	DefaultSampleRate  = 48000
	DefaultLogLevel    = "warning"
)
