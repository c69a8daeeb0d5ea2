package emulator

import (
	"errors"

	"github.com/ezrec/corehal/translate"
)

var f = translate.From

var (
	ErrNoWake = errors.New(f("tick interrupt disabled, nothing to wake the core"))
)

// ErrStage indicates the bring-up stage that failed.
type ErrStage struct {
	Stage string
	Err   error
}

func (err *ErrStage) Error() string {
	return f("%v: %v", err.Stage, err.Err)
}

func (err *ErrStage) Unwrap() error {
	return err.Err
}
