package research

import "time"

// Resource count bounds given to the model. They are instructions, not
// invariants: fewer than MinResources is reported as a warning and more than
// MaxResources is clamped.
const (
	MinResources = 5
	MaxResources = 10
)

// Config holds research settings.
type Config struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxToolCalls int           `mapstructure:"max_tool_calls"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
}

// DefaultConfig returns sensible defaults for research.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxToolCalls: 6,
		MaxTokens:    2048,
		Temperature:  0.3,
	}
}
