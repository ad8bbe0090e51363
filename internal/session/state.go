package session

import (
	"errors"
	"fmt"

	"github.com/azyu/chapterstudio/pkg/types"
)

// State is the lifecycle position of the current chapter.
type State int

const (
	// Idle has no chapter and no request in flight.
	Idle State = iota
	// Generating has a generation request in flight.
	Generating
	// Reviewing has variants available and none selected.
	Reviewing
	// Selected has a chosen variant and a live edit buffer.
	Selected
	// Saved is Selected with the edit buffer persisted.
	Saved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Reviewing:
		return "reviewing"
	case Selected:
		return "selected"
	case Saved:
		return "saved"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HasSelection reports whether a variant is selected in this state.
func (s State) HasSelection() bool {
	return s == Selected || s == Saved
}

// Kind identifies which backend call a ticket stands for.
type Kind int

const (
	KindGeneration Kind = iota + 1
	KindLoad
	KindSelection
	KindSave
)

func (k Kind) String() string {
	switch k {
	case KindGeneration:
		return "generate"
	case KindLoad:
		return "load"
	case KindSelection:
		return "select"
	case KindSave:
		return "save"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Ticket describes one backend call a Begin operation asked for. Its result
// must be fed back through the matching Apply; results whose ticket has
// been superseded are discarded.
type Ticket struct {
	Kind Kind
	Seq  uint64

	// ChapterID is the chapter the call targets. Empty for generation.
	ChapterID string

	// Request is the generation request for KindGeneration.
	Request types.GenerationRequest

	// Text is the variant for KindSelection or the edit buffer for KindSave.
	Text string

	epoch uint64
}

var (
	// ErrInvalidTransition is returned when an operation is not valid in the
	// current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrStale is returned by Apply for a response that has been superseded.
	ErrStale = errors.New("stale response discarded")

	// ErrUnknownVariant is returned when selecting text that is not one of
	// the current variants.
	ErrUnknownVariant = errors.New("not one of the current variants")
)

// Warning is a non-fatal failure that did not change the session.
type Warning struct {
	Op  string
	Err error
}

func (w *Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Op, w.Err)
}

func (w *Warning) Unwrap() error { return w.Err }

// IsWarning reports whether err is a non-fatal Warning.
func IsWarning(err error) bool {
	var w *Warning
	return errors.As(err, &w)
}

func invalid(op string, s State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, s)
}
