package sandbox

import (
	"errors"
	"time"
)

var (
	// ErrExecutionTimeout is returned when a script outlives its budget
	ErrExecutionTimeout = errors.New("script execution timeout exceeded")
	// ErrRuntimeClosed is returned by a closed runtime
	ErrRuntimeClosed = errors.New("sandbox runtime is closed")
)

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Budget for all scripts of one document
	MaxCallStackSize int           // Recursion limit
	EnableConsole    bool          // Capture console.log/warn/error/info
	EnableDOM        bool          // Expose document and element proxies
}

// Result holds the outcome of one render or evaluation
type Result struct {
	Value    interface{}   `json:"value,omitempty"` // Completion value (Eval only)
	HTML     string        `json:"html"`            // Serialized DOM after scripts ran
	Title    string        `json:"title"`           // Document title after scripts ran
	Console  []LogEntry    `json:"console"`         // Console output in call order
	Errors   []ScriptError `json:"errors"`          // Uncaught errors, one per failing script
	Scripts  int           `json:"scripts"`         // Inline scripts executed
	TimedOut bool          `json:"timed_out"`       // Budget exhausted; later scripts skipped
	Duration time.Duration `json:"duration_ns"`     // Wall time
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ScriptError is an uncaught exception from one inline script
type ScriptError struct {
	Script  int    `json:"script"` // Zero-based index in document order
	Message string `json:"message"`
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		Timeout:          2 * time.Second,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		EnableDOM:        true,
	}
}
