// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build tinygo && cortexm

package reg

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"
)

// MMIO is the hardware backend: volatile access to the real address space
// and the real core registers.
type MMIO struct{}

// Load reads the 32-bit register at addr.
func (MMIO) Load(addr uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

// Store writes the 32-bit register at addr.
func (MMIO) Store(addr uintptr, value uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr)), value)
}

// SwapBasePri reads and writes BASEPRI with PRIMASK held.
func (MMIO) SwapBasePri(level uint8) (previous uint8) {
	mask := arm.DisableInterrupts()
	previous = uint8(arm.AsmFull("mrs {}, BASEPRI", nil))
	arm.AsmFull("msr BASEPRI, {level}", map[string]interface{}{
		"level": uint32(level),
	})
	arm.EnableInterrupts(mask)
	return
}

// MSP reads the main stack pointer.
func (MMIO) MSP() uintptr {
	return arm.AsmFull("mrs {}, MSP", nil)
}

// SetMSP writes the main stack pointer.
func (MMIO) SetMSP(sp uintptr) {
	arm.AsmFull("msr MSP, {sp}", map[string]interface{}{
		"sp": sp,
	})
}

// WaitForInterrupt executes WFI.
func (MMIO) WaitForInterrupt() {
	arm.Asm("wfi")
}

// Halt spins forever.
func (MMIO) Halt() {
	for {
		arm.Asm("nop")
	}
}
