package buffer

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownBuffer = errors.New("unknown buffer")

// ID identifies one of the three source buffers
type ID int

const (
	Markup ID = iota
	Style
	Script
)

var all = [...]ID{Markup, Style, Script}

// All returns every buffer ID in composition order
func All() []ID {
	ids := make([]ID, len(all))
	copy(ids, all[:])
	return ids
}

// String returns the canonical name of the buffer
func (id ID) String() string {
	switch id {
	case Markup:
		return "markup"
	case Style:
		return "style"
	case Script:
		return "script"
	default:
		return "unknown"
	}
}

// FileName returns the file the buffer maps to inside an exported project
func (id ID) FileName() string {
	switch id {
	case Markup:
		return "index.html"
	case Style:
		return "style.css"
	case Script:
		return "script.js"
	default:
		return ""
	}
}

// Valid reports whether id is one of the three known buffers
func (id ID) Valid() bool {
	return id >= Markup && id <= Script
}

// MarshalText encodes the ID by name
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBuffer, int(id))
	}
	return []byte(id.String()), nil
}

// UnmarshalText decodes an ID from any of its accepted names
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID accepts buffer names as well as the editor language names
func ParseID(s string) (ID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markup", "html", "index.html":
		return Markup, nil
	case "style", "css", "style.css":
		return Style, nil
	case "script", "javascript", "js", "script.js":
		return Script, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBuffer, s)
}

// ForFileName maps a project file name back to its buffer
func ForFileName(name string) (ID, bool) {
	for _, id := range all {
		if strings.EqualFold(id.FileName(), name) {
			return id, true
		}
	}
	return 0, false
}

// Snapshot is a point-in-time copy of buffer contents keyed by ID
type Snapshot map[ID]string

// Clone returns an independent copy
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type entry struct {
	content  string
	baseline string
}

// Store holds the content and baseline of each buffer.
//
// Store is not safe for concurrent mutation; the preview coordinator
// serializes every edit.
type Store struct {
	buffers [len(all)]entry
}

// New creates a store whose contents and baselines both start at initial.
// Missing IDs start empty.
func New(initial Snapshot) *Store {
	s := &Store{}
	for _, id := range all {
		v := initial[id]
		s.buffers[id] = entry{content: v, baseline: v}
	}
	return s
}

// Get returns the current content of a buffer
func (s *Store) Get(id ID) string {
	if !id.Valid() {
		return ""
	}
	return s.buffers[id].content
}

// Set replaces the content of a buffer. Unknown IDs are ignored.
func (s *Store) Set(id ID, text string) {
	_ = s.SetChecked(id, text)
}

// SetChecked is Set that reports unknown IDs
func (s *Store) SetChecked(id ID, text string) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, int(id))
	}
	s.buffers[id].content = text
	return nil
}

// Baseline returns the value the buffer was initialized with
func (s *Store) Baseline(id ID) string {
	if !id.Valid() {
		return ""
	}
	return s.buffers[id].baseline
}

// Snapshot copies the current contents
func (s *Store) Snapshot() Snapshot {
	snap := make(Snapshot, len(all))
	for _, id := range all {
		snap[id] = s.buffers[id].content
	}
	return snap
}

// Baselines copies the baseline values
func (s *Store) Baselines() Snapshot {
	snap := make(Snapshot, len(all))
	for _, id := range all {
		snap[id] = s.buffers[id].baseline
	}
	return snap
}
