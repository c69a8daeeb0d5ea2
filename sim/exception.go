// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package sim

import (
	"log"

	"github.com/ezrec/corehal/reg"
)

// Exception is a system exception number.
type Exception int

//go:generate go tool stringer -linecomment -type=Exception
const (
	EXC_HARDFAULT = Exception(3)  // HardFault
	EXC_PENDSV    = Exception(14) // PendSV
	EXC_SYSTICK   = Exception(15) // SysTick
)

// priority returns the configured priority of exc. Caller holds mu.
func (m *Machine) priority(exc Exception) uint32 {
	switch exc {
	case EXC_PENDSV:
		return (m.shpr3 >> reg.SCB_SHPR3_PRI_14_Pos) & reg.SCB_SHPR_PRI_Msk
	case EXC_SYSTICK:
		return (m.shpr3 >> reg.SCB_SHPR3_PRI_15_Pos) & reg.SCB_SHPR_PRI_Msk
	}
	return 0
}

// Priority returns the configured priority of exc.
func (m *Machine) Priority(exc Exception) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.priority(exc)
}

// Pend marks exc pending.
func (m *Machine) Pend(exc Exception) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending |= 1 << exc
}

// Pending reports whether exc is pending.
func (m *Machine) Pending(exc Exception) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pending&(1<<exc) != 0
}

// next picks the pending exception allowed to preempt, if any.
// Caller holds mu.
func (m *Machine) next() (exc Exception, prio uint32, ok bool) {
	current := uint32(threadPriority)
	if len(m.active) > 0 {
		current = m.active[len(m.active)-1]
	}

	// HardFault has a fixed priority above any configurable one and
	// ignores BASEPRI.
	if m.pending&(1<<EXC_HARDFAULT) != 0 {
		exc, prio, ok = EXC_HARDFAULT, 0, true
		return
	}

	for _, candidate := range []Exception{EXC_PENDSV, EXC_SYSTICK} {
		if m.pending&(1<<candidate) == 0 {
			continue
		}
		p := m.priority(candidate)
		if m.basepri != 0 && p >= uint32(m.basepri) {
			continue
		}
		if p >= current {
			continue
		}
		if !ok || p < prio {
			exc, prio, ok = candidate, p, true
		}
	}

	return
}

// Fault raises a hard fault and takes it at once. With a handler that
// halts, it does not return.
func (m *Machine) Fault() {
	m.Pend(EXC_HARDFAULT)
	m.Dispatch()
}

// Dispatch runs every pending exception that the current priority and
// the BASEPRI mask allow, highest priority first, and returns how many
// handlers ran.
func (m *Machine) Dispatch() (taken int) {
	for {
		m.mu.Lock()
		exc, prio, ok := m.next()
		if !ok {
			m.mu.Unlock()
			return
		}
		m.pending &^= 1 << exc
		m.active = append(m.active, prio)
		handler := m.Vector[exc]
		m.mu.Unlock()

		if m.Verbose {
			log.Printf("sim: take %v (priority 0x%02x)", exc, prio)
		}

		if handler != nil {
			handler()
		}
		taken++

		m.mu.Lock()
		m.active = m.active[:len(m.active)-1]
		m.mu.Unlock()
	}
}

// Advance runs the core clock for cycles, counting SysTick down and taking
// its interrupt each time the counter reaches zero.
func (m *Machine) Advance(cycles uint64) {
	for cycles > 0 {
		m.mu.Lock()
		if m.csr&reg.SYST_CSR_ENABLE == 0 || m.rvr == 0 {
			m.Cycles += cycles
			m.mu.Unlock()
			return
		}

		if m.cvr == 0 {
			// Reload takes one clock.
			m.cvr = m.rvr
			m.Cycles++
			cycles--
			m.mu.Unlock()
			continue
		}

		if cycles < uint64(m.cvr) {
			m.cvr -= uint32(cycles)
			m.Cycles += cycles
			m.mu.Unlock()
			return
		}

		cycles -= uint64(m.cvr)
		m.Cycles += uint64(m.cvr)
		m.cvr = 0
		m.csr |= reg.SYST_CSR_COUNTFLAG
		fire := m.csr&reg.SYST_CSR_TICKINT != 0
		if fire {
			m.pending |= 1 << EXC_SYSTICK
		}
		m.mu.Unlock()

		if fire {
			m.Dispatch()
		}
	}
}
