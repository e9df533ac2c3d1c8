// Package id generates prefixed ULIDs.
//
// IDs are lexicographically sortable by creation time and carry a type
// prefix (ws_, tgt_, req_) so logs stay readable and a target id can never
// be passed where a workspace id is expected.
package id

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// WorkspaceID identifies an editor workspace
type WorkspaceID string

// TargetID identifies a detached preview surface
type TargetID string

// RequestID identifies an API request
type RequestID string

const (
	WorkspacePrefix = "ws"
	TargetPrefix    = "tgt"
	RequestPrefix   = "req"
)

var ErrInvalidID = errors.New("invalid id")

// Generator generates ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with monotonic crypto entropy, so IDs
// made within the same millisecond still sort in creation order
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewWorkspaceID generates a new workspace ID
func NewWorkspaceID() WorkspaceID {
	return WorkspaceID(Default().GenerateWithPrefix(WorkspacePrefix))
}

// NewTargetID generates a new detached target ID
func NewTargetID() TargetID {
	return TargetID(Default().GenerateWithPrefix(TargetPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id WorkspaceID) String() string { return string(id) }
func (id TargetID) String() string    { return string(id) }
func (id RequestID) String() string   { return string(id) }

// ParseWorkspaceID validates a workspace ID taken from a URL
func ParseWorkspaceID(s string) (WorkspaceID, error) {
	if _, err := ParsePrefixed(s, WorkspacePrefix); err != nil {
		return "", err
	}
	return WorkspaceID(s), nil
}

// ParseTargetID validates a target ID taken from a URL
func ParseTargetID(s string) (TargetID, error) {
	if _, err := ParsePrefixed(s, TargetPrefix); err != nil {
		return "", err
	}
	return TargetID(s), nil
}

// ParsePrefixed checks the prefix and returns the embedded ULID
func ParsePrefixed(s, prefix string) (ulid.ULID, error) {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("%w: %q lacks prefix %s_", ErrInvalidID, s, prefix)
	}
	u, err := ulid.ParseStrict(rest)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: %q: %v", ErrInvalidID, s, err)
	}
	return u, nil
}

// IsValid checks if an unprefixed string is a valid ULID
func IsValid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Timestamp extracts the creation time from a prefixed ID
func Timestamp(s, prefix string) (time.Time, error) {
	u, err := ParsePrefixed(s, prefix)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
