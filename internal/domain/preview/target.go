package preview

import "errors"

// ErrTargetClosed is returned by openers that can no longer create surfaces
var ErrTargetClosed = errors.New("render target closed")

// Kind classifies a render target
type Kind int

const (
	Embedded Kind = iota
	Detached
	Headless
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Embedded:
		return "embedded"
	case Detached:
		return "detached"
	case Headless:
		return "headless"
	default:
		return "unknown"
	}
}

// Target is one execution surface that renders composed documents.
//
// Present replaces everything the surface currently shows with document in
// a single write: scripts, timers and listeners from the previous document
// are discarded and the new one is parsed and executed fresh. Present on a
// surface that is no longer alive does nothing and returns nil.
type Target interface {
	Kind() Kind
	Alive() bool
	Present(document string) error
}

// DetachedTarget is a surface the host environment may close at any time.
//
// Done is closed exactly once, when the surface goes away. Alive reports
// false from that point on.
type DetachedTarget interface {
	Target
	Done() <-chan struct{}
	Close()
}

// Opener creates detached surfaces on request
type Opener interface {
	OpenDetached() (DetachedTarget, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func() (DetachedTarget, error)

// OpenDetached calls f
func (f OpenerFunc) OpenDetached() (DetachedTarget, error) {
	return f()
}

// State is the detached-preview state of a coordinator
type State int

const (
	NoDetachedTarget State = iota
	DetachedTargetActive
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case NoDetachedTarget:
		return "no-detached-target"
	case DetachedTargetActive:
		return "detached-target-active"
	default:
		return "unknown"
	}
}
