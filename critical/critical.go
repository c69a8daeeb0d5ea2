// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package critical raises and restores the interrupt priority threshold
// to build mutually exclusive regions that nest.
package critical

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/corehal/reg"
)

// Interrupt levels. An interrupt whose priority value is numerically at
// or above the level cannot preempt; LEVEL_NONE masks nothing.
const (
	LEVEL_NONE    = uint8(0x00)
	LEVEL_HIGHEST = uint8(0x10) // Masks everything but priority 0.
	LEVEL_LOWEST  = uint8(0xf0) // Masks only the lowest priority.
)

var _critical_defines = map[string]string{
	"LEVEL_NONE":    fmt.Sprintf("0x%02x", LEVEL_NONE),
	"LEVEL_HIGHEST": fmt.Sprintf("0x%02x", LEVEL_HIGHEST),
	"LEVEL_LOWEST":  fmt.Sprintf("0x%02x", LEVEL_LOWEST),
}

// Controller is the critical section controller.
type Controller struct {
	cpu reg.Processor
}

// New creates a controller for the processor.
func New(cpu reg.Processor) *Controller {
	return &Controller{cpu: cpu}
}

// Defines for the interrupt levels.
func (c *Controller) Defines() iter.Seq2[string, string] {
	return maps.All(_critical_defines)
}

// RaiseLevel installs level as the interrupt threshold and returns the
// threshold it replaced, for a later RaiseLevel(previous).
func (c *Controller) RaiseLevel(level uint8) (previous uint8) {
	return c.cpu.SwapBasePri(level)
}

// With runs fn at level, then restores the previous threshold.
func (c *Controller) With(level uint8, fn func()) {
	previous := c.RaiseLevel(level)
	defer c.RaiseLevel(previous)

	fn()
}

// Hold runs fn with the threshold at least as strict as level, then
// restores the previous threshold. A stricter enclosing threshold stays
// in force throughout.
func (c *Controller) Hold(level uint8, fn func()) {
	// LEVEL_HIGHEST is never looser than what it replaces.
	previous := c.RaiseLevel(LEVEL_HIGHEST)
	defer c.RaiseLevel(previous)

	held := level
	if previous != LEVEL_NONE && previous < level {
		held = previous
	}
	if held != LEVEL_HIGHEST {
		c.RaiseLevel(held)
	}

	fn()
}

// MaskFor returns the lowest level that holds off an interrupt of
// priority prio. Priority 0 cannot be masked by the threshold, so it maps
// to LEVEL_HIGHEST, which masks everything else.
func MaskFor(prio uint8) uint8 {
	level := prio & reg.PRIORITY_MASK
	if level == LEVEL_NONE {
		level = LEVEL_HIGHEST
	}
	return level
}

// EnterSleep opens the threshold fully and halts until an interrupt.
func (c *Controller) EnterSleep() {
	c.cpu.SwapBasePri(LEVEL_NONE)
	c.cpu.WaitForInterrupt()
}
