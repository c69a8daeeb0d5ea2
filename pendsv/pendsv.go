// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package pendsv defers work to the PendSV exception, which runs once
// every more urgent interrupt has returned.
package pendsv

import (
	"log"
	"sync/atomic"

	"github.com/ezrec/corehal/critical"
	"github.com/ezrec/corehal/reg"
)

// PRIORITY is the PendSV priority once a callback is bound: least urgent.
const PRIORITY = 0xff

type binding struct {
	callback func(any)
	param    any
}

// Trigger is the deferred interrupt trigger.
type Trigger struct {
	Verbose bool // Set to enable verbose logging.

	crit  *critical.Controller
	icsr  reg.Register
	shpr3 reg.Register

	binding atomic.Pointer[binding]
}

// New creates a trigger.
func New(bus reg.Bus, crit *critical.Controller) *Trigger {
	return &Trigger{
		crit:  crit,
		icsr:  reg.At(bus, reg.SCB_ICSR),
		shpr3: reg.At(bus, reg.SCB_SHPR3),
	}
}

// Configure binds callback and param, replacing any earlier binding.
// Binding a callback drops PendSV to the least urgent priority. PendSV is
// held off while the binding changes.
func (t *Trigger) Configure(callback func(any), param any) (err error) {
	if callback != nil {
		t.shpr3.ReplaceBits(PRIORITY, reg.SCB_SHPR_PRI_Msk, reg.SCB_SHPR3_PRI_14_Pos)
	}

	prio := uint8(t.shpr3.Get() >> reg.SCB_SHPR3_PRI_14_Pos)
	t.crit.Hold(critical.MaskFor(prio), func() {
		t.binding.Store(&binding{callback: callback, param: param})
	})

	if t.Verbose {
		log.Printf("pendsv: configured, bound=%v priority=0x%02x", callback != nil, prio)
	}

	return
}

// Trigger pends the exception.
func (t *Trigger) Trigger() (err error) {
	t.icsr.Set(reg.SCB_ICSR_PENDSVSET)
	return
}

// Handler is the PendSV exception handler.
func (t *Trigger) Handler() {
	b := t.binding.Load()
	if b == nil || b.callback == nil {
		return
	}
	b.callback(b.param)
}
