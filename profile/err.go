package profile

import (
	"errors"

	"github.com/ezrec/corehal/translate"
)

var f = translate.From

var (
	ErrRange = errors.New(f("value out of range"))
)

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number or define", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrField is a board file field that did not resolve.
type ErrField struct {
	Field string
	Err   error
}

func (err *ErrField) Error() string {
	return f("%v: %v", err.Field, err.Err)
}

func (err *ErrField) Unwrap() error {
	return err.Err
}
