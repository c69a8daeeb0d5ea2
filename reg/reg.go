// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package reg is the register access layer of the bring-up code.
//
// Memory-mapped control and status registers are reached through a Bus,
// and the handful of processor special registers (BASEPRI, MSP) plus the
// WFI instruction through a Processor. Every access is a single 32-bit
// load or store; callers compose read-modify-write sequences from them.
//
// Two backends exist: the simulated microcontroller in package sim, and,
// when built with TinyGo for a Cortex-M target, direct volatile MMIO.
package reg

// Bus is word-wide access to the peripheral address space.
type Bus interface {
	// Load reads the 32-bit register at addr.
	Load(addr uintptr) uint32
	// Store writes the 32-bit register at addr.
	Store(addr uintptr, value uint32)
}

// Processor is access to the core special registers.
type Processor interface {
	// SwapBasePri installs level as the priority mask and returns the
	// mask in effect before, as one uninterruptible operation.
	SwapBasePri(level uint8) (previous uint8)
	// MSP reads the main stack pointer.
	MSP() uintptr
	// SetMSP writes the main stack pointer.
	SetMSP(sp uintptr)
	// WaitForInterrupt halts the core until an interrupt is taken.
	WaitForInterrupt()
	// Halt stops execution permanently. It does not return.
	Halt()
}

// Register is one 32-bit register on a Bus.
type Register struct {
	Bus  Bus
	Addr uintptr
}

// At returns the register at addr on bus.
func At(bus Bus, addr uintptr) Register {
	return Register{Bus: bus, Addr: addr}
}

// Get reads the register.
func (r Register) Get() uint32 {
	return r.Bus.Load(r.Addr)
}

// Set writes the register.
func (r Register) Set(value uint32) {
	r.Bus.Store(r.Addr, value)
}

// SetBits sets the bits of mask, leaving the others.
func (r Register) SetBits(mask uint32) {
	r.Set(r.Get() | mask)
}

// ClearBits clears the bits of mask, leaving the others.
func (r Register) ClearBits(mask uint32) {
	r.Set(r.Get() &^ mask)
}

// HasBits reports whether any bit of mask is set.
func (r Register) HasBits(mask uint32) bool {
	return r.Get()&mask != 0
}

// ReplaceBits replaces the field of mask at pos with value.
func (r Register) ReplaceBits(value uint32, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | (value&mask)<<pos)
}
