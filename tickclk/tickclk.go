// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package tickclk keeps a millisecond counter driven by the SysTick timer
// and calls an optional hook on every tick.
package tickclk

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"sync/atomic"

	"github.com/ezrec/corehal/critical"
	"github.com/ezrec/corehal/reg"
)

// TICK_HZ is the tick rate.
const TICK_HZ = 1000

// NO_INTERRUPT leaves the timer free-running with its interrupt masked.
const NO_INTERRUPT = -1

// PRIORITY_MAX is the lowest urgency priority Init accepts.
const PRIORITY_MAX = 1<<reg.PRIORITY_BITS - 1

var _tickclk_defines = map[string]string{
	"TICK_HZ":       fmt.Sprintf("%d", TICK_HZ),
	"NO_INTERRUPT":  fmt.Sprintf("%d", NO_INTERRUPT),
	"TICK_PRIO_MAX": fmt.Sprintf("%d", PRIORITY_MAX),
}

// Defines returns the tick constants usable in profile expressions.
func Defines() iter.Seq2[string, string] {
	return maps.All(_tickclk_defines)
}

// Clock reports the core clock the timer counts.
type Clock interface {
	HclkFreqHz() uint32
}

// State of the driver.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_UNINITIALIZED = State(iota) // Uninitialized
	STATE_STOPPED                     // Stopped
	STATE_RUNNING                     // Running
)

type binding struct {
	callback func(any)
	param    any
}

// Driver is the tick clock.
type Driver struct {
	Verbose bool // Set to enable verbose logging.

	crit  *critical.Controller
	clk   Clock
	csr   reg.Register
	rvr   reg.Register
	cvr   reg.Register
	shpr3 reg.Register

	state    State
	priority int
	load     uint32

	ticks   atomic.Uint32
	binding atomic.Pointer[binding]
}

// New creates a tick clock driver.
func New(bus reg.Bus, crit *critical.Controller, clk Clock) *Driver {
	return &Driver{
		crit:     crit,
		clk:      clk,
		csr:      reg.At(bus, reg.SYST_CSR),
		rvr:      reg.At(bus, reg.SYST_RVR),
		cvr:      reg.At(bus, reg.SYST_CVR),
		shpr3:    reg.At(bus, reg.SCB_SHPR3),
		priority: NO_INTERRUPT,
	}
}

// State returns the driver state.
func (d *Driver) State() State {
	return d.state
}

// Init programs the timer for one tick per millisecond at the current core
// clock, stopped. With a priority of 0 (most urgent) to PRIORITY_MAX the
// tick interrupt is enabled at that priority; NO_INTERRUPT leaves it off.
func (d *Driver) Init(priority int) (err error) {
	if priority != NO_INTERRUPT && (priority < 0 || priority > PRIORITY_MAX) {
		err = &ErrPriority{Priority: priority}
		return
	}

	hclk := d.clk.HclkFreqHz()
	load := hclk / TICK_HZ
	if load < 2 || load-1 > reg.SYST_RVR_RELOAD {
		err = &ErrReload{HclkFreqHz: hclk}
		return
	}
	d.load = load - 1

	d.rvr.Set(d.load)
	if priority == NO_INTERRUPT {
		d.csr.Set(reg.SYST_CSR_CLKSOURCE)
	} else {
		d.csr.Set(reg.SYST_CSR_TICKINT | reg.SYST_CSR_CLKSOURCE)
		d.shpr3.ReplaceBits(uint32(priority)<<(8-reg.PRIORITY_BITS), reg.SCB_SHPR_PRI_Msk, reg.SCB_SHPR3_PRI_15_Pos)
	}

	d.priority = priority
	d.state = STATE_STOPPED

	if d.Verbose {
		log.Printf("tickclk: init reload=%d priority=%d", d.load, priority)
	}

	return
}

// Fini stops the timer.
func (d *Driver) Fini() (err error) {
	return d.Stop()
}

// Start runs the timer from the top of a full period.
func (d *Driver) Start() (err error) {
	if d.state == STATE_UNINITIALIZED {
		err = ErrUninitialized
		return
	}

	d.cvr.Set(0)
	d.csr.SetBits(reg.SYST_CSR_ENABLE)
	d.state = STATE_RUNNING

	return
}

// Stop halts the timer. The counter keeps its value.
func (d *Driver) Stop() (err error) {
	if d.state == STATE_UNINITIALIZED {
		err = ErrUninitialized
		return
	}

	d.csr.ClearBits(reg.SYST_CSR_ENABLE)
	d.state = STATE_STOPPED

	return
}

// ConfigureCallback replaces the per-tick hook. The tick interrupt is
// held off while the binding changes. A nil callback removes the hook.
func (d *Driver) ConfigureCallback(callback func(any), param any) (err error) {
	b := &binding{callback: callback, param: param}

	if d.priority == NO_INTERRUPT {
		d.binding.Store(b)
		return
	}

	prio := uint8(d.priority << (8 - reg.PRIORITY_BITS))
	d.crit.Hold(critical.MaskFor(prio), func() {
		d.binding.Store(b)
	})

	return
}

// Handler is the SysTick exception handler.
func (d *Driver) Handler() {
	d.ticks.Add(1)

	b := d.binding.Load()
	if b != nil && b.callback != nil {
		b.callback(b.param)
	}
}

// Ms returns the milliseconds counted since Init. It wraps at 2^32.
func (d *Driver) Ms() (ms uint32) {
	for {
		ms = d.ticks.Load()
		if ms == d.ticks.Load() {
			return
		}
	}
}

// Us returns the microseconds counted since Init, interpolated from the
// live timer value. A reload between the two reads can make it lag by up
// to one tick.
func (d *Driver) Us() (us uint32) {
	us = d.Ms() * 1000
	if d.load == 0 {
		return
	}

	load := d.rvr.Get()
	val := d.cvr.Get()
	if load == 0 || val > load {
		return
	}

	us += uint32(uint64(load-val) * 1000 / uint64(load))

	return
}
