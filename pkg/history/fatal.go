package history

import (
	"errors"
	"fmt"
)

// FatalKind classifies conditions that always abort the run.
type FatalKind int

const (
	PoolOverflow FatalKind = iota
	BufferOverflow
	StackOverflow
	Confusion
)

func (k FatalKind) String() string {
	switch k {
	case PoolOverflow:
		return "pool overflow"
	case BufferOverflow:
		return "buffer overflow"
	case StackOverflow:
		return "stack overflow"
	case Confusion:
		return "confusion"
	}
	return fmt.Sprintf("fatal(%d)", int(k))
}

// Fatal is a resource limit or an internal invariant violation.
type Fatal struct {
	Kind FatalKind
	What string
	Size int
}

func (e *Fatal) Error() string {
	if e.Kind == Confusion {
		return e.What + "---this can't happen"
	}
	return fmt.Sprintf("Sorry---you've exceeded the %s size %d", e.What, e.Size)
}

// Overflow reports that a resource named what exceeded its ceiling.
func Overflow(kind FatalKind, what string, size int) error {
	return &Fatal{Kind: kind, What: what, Size: size}
}

// Confused reports an internal invariant violation.
func Confused(format string, args ...any) error {
	return &Fatal{Kind: Confusion, What: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err carries a Fatal error and returns it.
func IsFatal(err error) (*Fatal, bool) {
	var fe *Fatal
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
