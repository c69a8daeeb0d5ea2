// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs the bring-up layer on the simulated core.
package emulator

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/corehal/clock"
	"github.com/ezrec/corehal/core"
	"github.com/ezrec/corehal/internal"
	"github.com/ezrec/corehal/pendsv"
	"github.com/ezrec/corehal/profile"
	"github.com/ezrec/corehal/sim"
	"github.com/ezrec/corehal/tickclk"
)

var _emulator_defines = map[string]string{
	"EXC_HARDFAULT": fmt.Sprintf("%v", int(sim.EXC_HARDFAULT)),
	"EXC_PENDSV":    fmt.Sprintf("%v", int(sim.EXC_PENDSV)),
	"EXC_SYSTICK":   fmt.Sprintf("%v", int(sim.EXC_SYSTICK)),
}

// Emulator state. Simulated core + bring-up components.
type Emulator struct {
	Verbose      bool // If set, enables verbose logging.
	*sim.Machine      // Reference to the simulated core.

	Core    *core.Core      // Core control.
	TickClk *tickclk.Driver // Tick clock.
	Pendsv  *pendsv.Trigger // Deferred interrupt trigger.
	Board   *profile.Board  // Board of the last Reset.

	DeferEvery uint32 // Pend deferred work every DeferEvery ticks; 0 never.
	Deferred   int    // Deferred work runs since Reset.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	m := sim.NewMachine()
	c := core.New(m, m)

	emu = &Emulator{
		Machine: m,
		Core:    c,
		TickClk: tickclk.New(m, c.Critical(), c),
		Pendsv:  pendsv.New(m, c.Critical()),
	}

	m.Vector[sim.EXC_HARDFAULT] = c.HardFault
	m.Vector[sim.EXC_SYSTICK] = emu.TickClk.Handler
	m.Vector[sim.EXC_PENDSV] = emu.Pendsv.Handler

	return
}

// DefaultBoard is the board used when none is loaded.
func DefaultBoard() *profile.Board {
	return &profile.Board{
		Name:         "default",
		Profile:      clock.DefaultProfile(),
		TickPriority: tickclk.PRIORITY_MAX,
	}
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Machine.Defines(),
		emu.Core.Critical().Defines(),
		clock.Defines(),
		tickclk.Defines(),
	)
}

// Reset powers the core on and runs the bring-up for board: clocks, then
// the tick clock, started.
func (emu *Emulator) Reset(board *profile.Board) (err error) {
	emu.Machine.Reset()

	// The tick counter restarts from zero with the core.
	emu.TickClk = tickclk.New(emu.Machine, emu.Core.Critical(), emu.Core)
	emu.Machine.Vector[sim.EXC_SYSTICK] = emu.TickClk.Handler

	emu.Machine.Verbose = emu.Verbose
	emu.Core.Verbose = emu.Verbose
	emu.TickClk.Verbose = emu.Verbose
	emu.Pendsv.Verbose = emu.Verbose

	emu.Board = board
	emu.Deferred = 0

	err = emu.Core.Init(&board.Profile)
	if err != nil {
		err = &ErrStage{Stage: "clock", Err: err}
		return
	}

	err = emu.Pendsv.Configure(func(any) { emu.Deferred++ }, nil)
	if err != nil {
		err = &ErrStage{Stage: "pendsv", Err: err}
		return
	}

	err = emu.TickClk.Init(board.TickPriority)
	if err != nil {
		err = &ErrStage{Stage: "tick", Err: err}
		return
	}

	err = emu.TickClk.ConfigureCallback(emu.onTick, nil)
	if err != nil {
		err = &ErrStage{Stage: "tick", Err: err}
		return
	}

	err = emu.TickClk.Start()
	if err != nil {
		err = &ErrStage{Stage: "tick", Err: err}
		return
	}

	if emu.Verbose {
		log.Printf("emulator: %v up\n%v", board.Name, emu.Core.Info())
	}

	return
}

func (emu *Emulator) onTick(any) {
	if emu.DeferEvery != 0 && emu.TickClk.Ms()%emu.DeferEvery == 0 {
		emu.Pendsv.Trigger()
	}
}

// Tick sleeps the core until the next tick interrupt.
func (emu *Emulator) Tick() (err error) {
	if emu.Board == nil || emu.Board.TickPriority == tickclk.NO_INTERRUPT {
		err = ErrNoWake
		return
	}

	err = emu.Core.Sleep(0)

	return
}

// Run sleeps through ms ticks.
func (emu *Emulator) Run(ms uint32) (err error) {
	for range ms {
		err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
