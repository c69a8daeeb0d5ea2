// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package sim

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"runtime"
	"sync"

	"github.com/ezrec/corehal/reg"
)

// Memory map origins.
const (
	ITCM_FLASH_ORIGIN = 0x0020_0000
	FLASH_ORIGIN      = 0x0800_0000
	SRAM_ORIGIN       = 0x2000_0000
	INITIAL_SP        = 0x2008_0000
)

// Power-on CCSIDR for a 32KiB, 4-way, 32-byte line data cache.
const CCSIDR_RESET_VALUE = uint32(255<<reg.SCB_CCSIDR_NUMSETS_Pos | 3<<reg.SCB_CCSIDR_ASSOC_Pos | 1)

const threadPriority = 0x100

var _machine_defines = map[string]string{
	"ITCM_FLASH_ORIGIN": fmt.Sprintf("0x%x", ITCM_FLASH_ORIGIN),
	"FLASH_ORIGIN":      fmt.Sprintf("0x%x", FLASH_ORIGIN),
	"SRAM_ORIGIN":       fmt.Sprintf("0x%x", SRAM_ORIGIN),
	"INITIAL_SP":        fmt.Sprintf("0x%x", INITIAL_SP),
}

// Write is one store seen on the bus.
type Write struct {
	Addr  uintptr
	Value uint32
}

// Machine is a simulated STM32F7 core with the clock, flash, system
// control and SysTick blocks. It implements reg.Bus and reg.Processor.
type Machine struct {
	Verbose bool // Set to enable verbose logging.

	HsePresent bool   // External crystal fitted.
	ReadyDelay int    // CR reads before an enabled oscillator reports ready.
	Stuck      uint32 // RCC_CR ready bits that never assert.

	Vector [16]func() // Exception handlers, by exception number.

	Cycles uint64 // Core clock cycles simulated.
	Sleeps int    // WFI executions.

	mu        sync.Mutex
	mem       map[uintptr]uint32
	cr        uint32
	pllcfgr   uint32
	cfgr      uint32
	readyWait map[uint32]int
	csr       uint32
	rvr       uint32
	cvr       uint32
	shpr3     uint32
	vtor      uint32
	prigroup  uint32
	pending   uint32
	active    []uint32
	basepri   uint8
	msp       uintptr
	halted    bool
	writes    []Write
}

// NewMachine creates a machine in its power-on state.
func NewMachine() (m *Machine) {
	m = &Machine{
		HsePresent: true,
	}

	m.Reset()

	return
}

// Reset returns every register to its power-on value.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Verbose {
		log.Printf("sim: reset")
	}

	m.mem = map[uintptr]uint32{
		reg.SCB_CCSIDR: CCSIDR_RESET_VALUE,
	}
	m.cr = reg.RCC_CR_HSION | reg.RCC_CR_HSIRDY
	m.pllcfgr = reg.RCC_PLLCFGR_RESET_VALUE
	m.cfgr = 0
	m.readyWait = map[uint32]int{}
	m.csr, m.rvr, m.cvr = 0, 0, 0
	m.shpr3 = 0
	m.vtor = 0
	m.prigroup = 0
	m.pending = 0
	m.active = nil
	m.basepri = 0
	m.msp = INITIAL_SP
	m.halted = false
	m.writes = nil
	m.Cycles = 0
	m.Sleeps = 0
}

// Defines for the simulated memory map.
func (m *Machine) Defines() iter.Seq2[string, string] {
	return maps.All(_machine_defines)
}

// Load implements reg.Bus.
func (m *Machine) Load(addr uintptr) (value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch addr {
	case reg.RCC_CR:
		m.pollReady()
		value = m.cr
	case reg.RCC_PLLCFGR:
		value = m.pllcfgr
	case reg.RCC_CFGR:
		value = m.cfgr
	case reg.SYST_CSR:
		value = m.csr
		m.csr &^= reg.SYST_CSR_COUNTFLAG
	case reg.SYST_RVR:
		value = m.rvr
	case reg.SYST_CVR:
		value = m.cvr
	case reg.SCB_ICSR:
		if m.pending&(1<<EXC_PENDSV) != 0 {
			value |= reg.SCB_ICSR_PENDSVSET
		}
		if m.pending&(1<<EXC_SYSTICK) != 0 {
			value |= reg.SCB_ICSR_PENDSTSET
		}
	case reg.SCB_VTOR:
		value = m.vtor
	case reg.SCB_AIRCR:
		value = reg.SCB_AIRCR_VECTKEYSTAT | m.prigroup<<reg.SCB_AIRCR_PRIGROUP_Pos
	case reg.SCB_SHPR3:
		value = m.shpr3
	case reg.SCB_ICIALLU, reg.SCB_DCISW:
		// Write-only.
	default:
		value = m.mem[addr]
	}

	return
}

// Store implements reg.Bus.
func (m *Machine) Store(addr uintptr, value uint32) {
	if addr == reg.SCB_ICSR {
		// A pended exception is taken once the store retires.
		defer m.Dispatch()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = append(m.writes, Write{Addr: addr, Value: value})

	switch addr {
	case reg.RCC_CR:
		m.storeCR(value)
	case reg.RCC_PLLCFGR:
		if m.cr&reg.RCC_CR_PLLON != 0 {
			if m.Verbose {
				log.Printf("sim: PLLCFGR write 0x%08x ignored, PLL on", value)
			}
			return
		}
		m.pllcfgr = value
	case reg.RCC_CFGR:
		m.storeCFGR(value)
	case reg.SYST_CSR:
		mask := reg.SYST_CSR_ENABLE | reg.SYST_CSR_TICKINT | reg.SYST_CSR_CLKSOURCE
		m.csr = (m.csr &^ mask) | (value & mask)
	case reg.SYST_RVR:
		m.rvr = value & reg.SYST_RVR_RELOAD
	case reg.SYST_CVR:
		m.cvr = 0
		m.csr &^= reg.SYST_CSR_COUNTFLAG
	case reg.SCB_ICSR:
		if value&reg.SCB_ICSR_PENDSVSET != 0 {
			m.pending |= 1 << EXC_PENDSV
		} else if value&reg.SCB_ICSR_PENDSVCLR != 0 {
			m.pending &^= 1 << EXC_PENDSV
		}
		if value&reg.SCB_ICSR_PENDSTSET != 0 {
			m.pending |= 1 << EXC_SYSTICK
		} else if value&reg.SCB_ICSR_PENDSTCLR != 0 {
			m.pending &^= 1 << EXC_SYSTICK
		}
	case reg.SCB_VTOR:
		m.vtor = value & reg.SCB_VTOR_TBLOFF
	case reg.SCB_AIRCR:
		if value&0xffff_0000 != reg.SCB_AIRCR_VECTKEY {
			return
		}
		m.prigroup = (value >> reg.SCB_AIRCR_PRIGROUP_Pos) & reg.SCB_AIRCR_PRIGROUP_Msk
	case reg.SCB_SHPR3:
		m.shpr3 = value & 0xf0f0_f0f0
	case reg.SCB_CCSIDR:
		// Read-only.
	case reg.SCB_ICIALLU, reg.SCB_DCISW:
		// Maintenance operations.
	default:
		m.mem[addr] = value
	}
}

// sourceReady reports whether the SW encoding names a running oscillator.
func (m *Machine) sourceReady(sw uint32) bool {
	switch sw {
	case 0:
		return m.cr&reg.RCC_CR_HSIRDY != 0
	case 1:
		return m.cr&reg.RCC_CR_HSERDY != 0
	case 2:
		return m.cr&reg.RCC_CR_PLLRDY != 0
	}
	return false
}

func (m *Machine) sws() uint32 {
	return (m.cfgr >> reg.RCC_CFGR_SWS_Pos) & reg.RCC_CFGR_SWS_Msk
}

func (m *Machine) storeCFGR(value uint32) {
	sws := m.sws()
	sw := (value >> reg.RCC_CFGR_SW_Pos) & reg.RCC_CFGR_SW_Msk
	if m.sourceReady(sw) {
		sws = sw
	} else if m.Verbose {
		log.Printf("sim: SW=%d not ready, SWS stays %d", sw, sws)
	}
	value &^= reg.RCC_CFGR_SWS_Msk << reg.RCC_CFGR_SWS_Pos
	m.cfgr = value | sws<<reg.RCC_CFGR_SWS_Pos
}

func (m *Machine) storeCR(value uint32) {
	oscillators := [](struct {
		on, rdy uint32
		sws     uint32
	}){
		{reg.RCC_CR_HSION, reg.RCC_CR_HSIRDY, 0},
		{reg.RCC_CR_HSEON, reg.RCC_CR_HSERDY, 1},
		{reg.RCC_CR_PLLON, reg.RCC_CR_PLLRDY, 2},
	}

	for _, osc := range oscillators {
		was := m.cr&osc.on != 0
		want := value&osc.on != 0
		switch {
		case was && !want:
			if m.sws() == osc.sws {
				// The oscillator driving SYSCLK cannot be stopped.
				if m.Verbose {
					log.Printf("sim: CR clear 0x%x ignored, drives SYSCLK", osc.on)
				}
				continue
			}
			m.cr &^= osc.on | osc.rdy
			delete(m.readyWait, osc.rdy)
		case !was && want:
			m.cr |= osc.on
			if !m.canLock(osc.rdy) {
				continue
			}
			if m.ReadyDelay <= 0 {
				m.cr |= osc.rdy
			} else {
				m.readyWait[osc.rdy] = m.ReadyDelay
			}
		}
	}
}

// canLock reports whether an oscillator will ever become ready.
func (m *Machine) canLock(rdy uint32) bool {
	if m.Stuck&rdy != 0 {
		return false
	}
	switch rdy {
	case reg.RCC_CR_HSERDY:
		return m.HsePresent
	case reg.RCC_CR_PLLRDY:
		if m.pllcfgr&reg.RCC_PLLCFGR_PLLSRC_HSE != 0 {
			return m.cr&reg.RCC_CR_HSERDY != 0
		}
		return m.cr&reg.RCC_CR_HSIRDY != 0
	}
	return true
}

func (m *Machine) pollReady() {
	for rdy, wait := range m.readyWait {
		wait--
		if wait <= 0 {
			m.cr |= rdy
			delete(m.readyWait, rdy)
		} else {
			m.readyWait[rdy] = wait
		}
	}
}

// Writes returns a copy of the store journal.
func (m *Machine) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Write(nil), m.writes...)
}

// WritesTo returns the values stored to addr, oldest first.
func (m *Machine) WritesTo(addr uintptr) (values []uint32) {
	for _, w := range m.Writes() {
		if w.Addr == addr {
			values = append(values, w.Value)
		}
	}
	return
}

// ClearWrites empties the store journal.
func (m *Machine) ClearWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = nil
}

// SwapBasePri implements reg.Processor. Lowering the mask takes any
// interrupt it was holding off.
func (m *Machine) SwapBasePri(level uint8) (previous uint8) {
	m.mu.Lock()
	previous = m.basepri
	m.basepri = level & reg.PRIORITY_MASK
	lowered := m.basepri == 0 || (previous != 0 && m.basepri > previous)
	m.mu.Unlock()

	if lowered {
		m.Dispatch()
	}

	return
}

// BasePri reads the priority mask.
func (m *Machine) BasePri() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.basepri
}

// MSP implements reg.Processor.
func (m *Machine) MSP() uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.msp
}

// SetMSP implements reg.Processor.
func (m *Machine) SetMSP(sp uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.msp = sp
}

// WaitForInterrupt implements reg.Processor: take a pending interrupt, or
// run the core clock until SysTick raises one.
func (m *Machine) WaitForInterrupt() {
	m.mu.Lock()
	m.Sleeps++
	m.mu.Unlock()

	if m.Dispatch() > 0 {
		return
	}

	m.mu.Lock()
	wake := m.csr&(reg.SYST_CSR_ENABLE|reg.SYST_CSR_TICKINT) == reg.SYST_CSR_ENABLE|reg.SYST_CSR_TICKINT && m.rvr != 0
	cycles := uint64(m.cvr)
	if cycles == 0 {
		cycles = uint64(m.rvr) + 1
	}
	m.mu.Unlock()

	if !wake {
		if m.Verbose {
			log.Printf("sim: wfi with no wake source")
		}
		return
	}

	m.Advance(cycles)
}

// Halt implements reg.Processor. The calling goroutine stops for good.
func (m *Machine) Halt() {
	m.mu.Lock()
	m.halted = true
	m.mu.Unlock()

	if m.Verbose {
		log.Printf("sim: halted")
	}

	runtime.Goexit()
}

// Halted reports whether Halt was executed.
func (m *Machine) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.halted
}

// Sysclk returns the SWS encoding of the running system clock.
func (m *Machine) Sysclk() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sws()
}

// String returns the machine state as a string.
func (m *Machine) String() (text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs := []struct {
		name  string
		value uint32
	}{
		{"cr", m.cr},
		{"pllcfgr", m.pllcfgr},
		{"cfgr", m.cfgr},
		{"acr", m.mem[reg.FLASH_ACR]},
		{"syst_csr", m.csr},
		{"syst_rvr", m.rvr},
		{"syst_cvr", m.cvr},
		{"vtor", m.vtor},
		{"prigroup", m.prigroup},
		{"shpr3", m.shpr3},
		{"basepri", uint32(m.basepri)},
		{"msp", uint32(m.msp)},
	}
	for _, r := range regs {
		text += fmt.Sprintf("% 9s: %04X_%04X\n", r.name, r.value>>16, r.value&0xffff)
	}

	return
}
