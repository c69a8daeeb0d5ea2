// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package translate formats user-facing text for the locale of the host
// running the bring-up tools.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

const (
	KHZ = 1_000
	MHZ = 1_000_000
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("corehal: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Hz renders a frequency in the largest whole unit that divides it.
func Hz(freq uint32) (text string) {
	switch {
	case freq != 0 && freq%MHZ == 0:
		text = printer.Sprintf("%d MHz", freq/MHZ)
	case freq != 0 && freq%KHZ == 0:
		text = printer.Sprintf("%d kHz", freq/KHZ)
	default:
		text = printer.Sprintf("%d Hz", freq)
	}
	return
}
