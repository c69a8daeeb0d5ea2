package clock

import (
	"errors"

	"github.com/ezrec/corehal/translate"
)

var f = translate.From

var (
	// Configuration errors
	ErrPllUnreachable = errors.New(f("pll frequency unreachable"))
	ErrProfileInvalid = errors.New(f("profile invalid"))
	ErrFrequencyZero  = errors.New(f("frequency is zero"))
	ErrSourceDisabled = errors.New(f("source not enabled"))
	ErrOutOfRange     = errors.New(f("out of range"))

	// Hardware errors
	ErrTimeout = errors.New(f("ready flag timeout"))
)

// ErrUnreachable is a PLL target no divisor setting can produce.
type ErrUnreachable struct {
	InputHz   uint32
	PllFreqHz uint32
}

func (err *ErrUnreachable) Error() string {
	return f("pll %v from %v unreachable", translate.Hz(err.PllFreqHz), translate.Hz(err.InputHz))
}

func (err *ErrUnreachable) Is(target error) bool {
	return target == ErrPllUnreachable
}

// ErrField is an invalid profile field.
type ErrField struct {
	Field string
	Err   error
}

func (err *ErrField) Error() string {
	return f("profile %v: %v", err.Field, err.Err)
}

func (err *ErrField) Unwrap() error {
	return err.Err
}

func (err *ErrField) Is(target error) bool {
	return target == ErrProfileInvalid
}

// ErrNotReady is a ready flag that did not assert within the poll cap.
type ErrNotReady struct {
	Flag  string
	Polls uint32
}

func (err *ErrNotReady) Error() string {
	return f("%v not ready after %d polls", err.Flag, err.Polls)
}

func (err *ErrNotReady) Unwrap() error {
	return ErrTimeout
}
