package tickclk

import (
	"errors"

	"github.com/ezrec/corehal/translate"
)

var f = translate.From

var (
	ErrUninitialized = errors.New(f("tick clock not initialized"))
	ErrRange         = errors.New(f("out of range"))
)

// ErrReload is a core clock the 24-bit reload value cannot divide to
// one millisecond.
type ErrReload struct {
	HclkFreqHz uint32
}

func (err *ErrReload) Error() string {
	return f("no millisecond reload for %v", translate.Hz(err.HclkFreqHz))
}

func (err *ErrReload) Unwrap() error {
	return ErrRange
}

// ErrPriority is an interrupt priority outside the implemented range.
type ErrPriority struct {
	Priority int
}

func (err *ErrPriority) Error() string {
	return f("tick priority %d not in 0..%d", err.Priority, PRIORITY_MAX)
}

func (err *ErrPriority) Unwrap() error {
	return ErrRange
}
