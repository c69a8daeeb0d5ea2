package core

import (
	"errors"

	"github.com/ezrec/corehal/translate"
)

var f = translate.From

var (
	ErrUnimplemented = errors.New(f("not implemented"))
)
