package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/corehal/reg"
)

func TestMachine_Reset(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	assert.True(m.HsePresent)
	assert.Equal(reg.RCC_CR_HSION|reg.RCC_CR_HSIRDY, m.Load(reg.RCC_CR))
	assert.Equal(reg.RCC_PLLCFGR_RESET_VALUE, m.Load(reg.RCC_PLLCFGR))
	assert.Equal(uint32(0), m.Sysclk())
	assert.Equal(uintptr(INITIAL_SP), m.MSP())
	assert.Equal(uint8(0), m.BasePri())
	assert.Empty(m.Writes())
}

func TestMachine_ReadyDelay(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()
	m.ReadyDelay = 3

	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)|reg.RCC_CR_HSEON)
	assert.Zero(m.Load(reg.RCC_CR) & reg.RCC_CR_HSERDY)
	assert.Zero(m.Load(reg.RCC_CR) & reg.RCC_CR_HSERDY)
	assert.NotZero(m.Load(reg.RCC_CR) & reg.RCC_CR_HSERDY)

	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)&^reg.RCC_CR_HSEON)
	assert.Zero(m.Load(reg.RCC_CR) & (reg.RCC_CR_HSEON | reg.RCC_CR_HSERDY))
}

func TestMachine_Stuck(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()
	m.Stuck = reg.RCC_CR_HSERDY

	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)|reg.RCC_CR_HSEON)
	for range 10 {
		assert.Zero(m.Load(reg.RCC_CR) & reg.RCC_CR_HSERDY)
	}

	m = NewMachine()
	m.HsePresent = false
	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)|reg.RCC_CR_HSEON)
	assert.Zero(m.Load(reg.RCC_CR) & reg.RCC_CR_HSERDY)
}

func TestMachine_SystemClockSwitch(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	// HSE not running: SWS stays on HSI.
	m.Store(reg.RCC_CFGR, 1)
	assert.Equal(uint32(0), m.Sysclk())

	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)|reg.RCC_CR_HSEON)
	m.Store(reg.RCC_CFGR, 1)
	assert.Equal(uint32(1), m.Sysclk())
	assert.Equal(uint32(1<<2|1), m.Load(reg.RCC_CFGR))

	// HSE drives SYSCLK and cannot be stopped.
	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)&^reg.RCC_CR_HSEON)
	assert.NotZero(m.Load(reg.RCC_CR) & reg.RCC_CR_HSERDY)
}

func TestMachine_PllConfigLocked(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	m.Store(reg.RCC_PLLCFGR, 0x0000_3210)
	assert.Equal(uint32(0x0000_3210), m.Load(reg.RCC_PLLCFGR))

	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)|reg.RCC_CR_PLLON)
	assert.NotZero(m.Load(reg.RCC_CR) & reg.RCC_CR_PLLRDY)

	m.Store(reg.RCC_PLLCFGR, 0x0000_1111)
	assert.Equal(uint32(0x0000_3210), m.Load(reg.RCC_PLLCFGR))
}

func TestMachine_PllNeedsInput(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	m.Store(reg.RCC_PLLCFGR, reg.RCC_PLLCFGR_PLLSRC_HSE)
	m.Store(reg.RCC_CR, m.Load(reg.RCC_CR)|reg.RCC_CR_PLLON)
	assert.Zero(m.Load(reg.RCC_CR) & reg.RCC_CR_PLLRDY)
}

func TestMachine_SCB(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	m.Store(reg.SCB_VTOR, 0x0800_0042)
	assert.Equal(uint32(0x0800_0000), m.Load(reg.SCB_VTOR))

	m.Store(reg.SCB_AIRCR, 0x0000_0500)
	assert.Equal(reg.SCB_AIRCR_VECTKEYSTAT, m.Load(reg.SCB_AIRCR))

	m.Store(reg.SCB_AIRCR, reg.SCB_AIRCR_VECTKEY|5<<8)
	assert.Equal(reg.SCB_AIRCR_VECTKEYSTAT|5<<8, m.Load(reg.SCB_AIRCR))

	m.Store(reg.SCB_SHPR3, 0xffff_ffff)
	assert.Equal(uint32(0xf0f0_f0f0), m.Load(reg.SCB_SHPR3))
	assert.Equal(uint32(0xf0), m.Priority(EXC_PENDSV))
	assert.Equal(uint32(0xf0), m.Priority(EXC_SYSTICK))

	// Held off by BASEPRI, so it stays pending.
	m.SwapBasePri(0x10)
	m.Store(reg.SCB_ICSR, reg.SCB_ICSR_PENDSVSET)
	assert.True(m.Pending(EXC_PENDSV))
	assert.Equal(reg.SCB_ICSR_PENDSVSET, m.Load(reg.SCB_ICSR))
	m.Store(reg.SCB_ICSR, reg.SCB_ICSR_PENDSVCLR)
	assert.False(m.Pending(EXC_PENDSV))
}

func TestMachine_PendTaken(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	taken := 0
	m.Vector[EXC_PENDSV] = func() { taken++ }
	m.Store(reg.SCB_SHPR3, 0xf0<<16)

	m.Store(reg.SCB_ICSR, reg.SCB_ICSR_PENDSVSET)
	assert.Equal(1, taken)
	assert.False(m.Pending(EXC_PENDSV))
}

func TestMachine_SysTick(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	ticks := 0
	m.Vector[EXC_SYSTICK] = func() { ticks++ }

	m.Store(reg.SYST_RVR, 99)
	m.Store(reg.SYST_CSR, reg.SYST_CSR_TICKINT|reg.SYST_CSR_CLKSOURCE|reg.SYST_CSR_ENABLE)

	// First clock reloads, then 99 clocks count down to zero.
	m.Advance(99)
	assert.Equal(0, ticks)
	m.Advance(1)
	assert.Equal(1, ticks)
	assert.NotZero(m.Load(reg.SYST_CSR) & reg.SYST_CSR_COUNTFLAG)
	assert.Zero(m.Load(reg.SYST_CSR) & reg.SYST_CSR_COUNTFLAG)

	m.Advance(100 * 5)
	assert.Equal(6, ticks)
	assert.Equal(uint64(600), m.Cycles)

	m.Advance(30)
	assert.Equal(uint32(70), m.Load(reg.SYST_CVR))
	m.Store(reg.SYST_CVR, 1234)
	assert.Equal(uint32(0), m.Load(reg.SYST_CVR))

	m.Store(reg.SYST_CSR, 0)
	m.Advance(1000)
	assert.Equal(6, ticks)
}

func TestMachine_DispatchPriority(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	var order []Exception
	m.Vector[EXC_PENDSV] = func() { order = append(order, EXC_PENDSV) }
	m.Vector[EXC_SYSTICK] = func() { order = append(order, EXC_SYSTICK) }

	// SysTick 0x40, PendSV 0xf0: SysTick first.
	m.Store(reg.SCB_SHPR3, 0x40<<24|0xf0<<16)
	m.Pend(EXC_PENDSV)
	m.Pend(EXC_SYSTICK)
	assert.Equal(2, m.Dispatch())
	assert.Equal([]Exception{EXC_SYSTICK, EXC_PENDSV}, order)

	// Equal priority: lower exception number first.
	order = nil
	m.Store(reg.SCB_SHPR3, 0)
	m.Pend(EXC_SYSTICK)
	m.Pend(EXC_PENDSV)
	assert.Equal(2, m.Dispatch())
	assert.Equal([]Exception{EXC_PENDSV, EXC_SYSTICK}, order)
}

func TestMachine_BasePriMask(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	taken := 0
	m.Vector[EXC_PENDSV] = func() { taken++ }
	m.Store(reg.SCB_SHPR3, 0xf0<<16)

	prev := m.SwapBasePri(0x80)
	assert.Equal(uint8(0), prev)

	m.Pend(EXC_PENDSV)
	assert.Equal(0, m.Dispatch())
	assert.True(m.Pending(EXC_PENDSV))

	// Restoring the mask takes the held interrupt.
	prev = m.SwapBasePri(prev)
	assert.Equal(uint8(0x80), prev)
	assert.Equal(1, taken)
	assert.False(m.Pending(EXC_PENDSV))

	// Unimplemented priority bits read as zero.
	m.SwapBasePri(0x3f)
	assert.Equal(uint8(0x30), m.BasePri())
}

func TestMachine_NoPreemptBySamePriority(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	var order []string
	m.Vector[EXC_SYSTICK] = func() {
		order = append(order, "systick-in")
		m.Pend(EXC_PENDSV)
		assert.Equal(0, m.Dispatch())
		order = append(order, "systick-out")
	}
	m.Vector[EXC_PENDSV] = func() { order = append(order, "pendsv") }
	m.Store(reg.SCB_SHPR3, 0x40<<24|0xf0<<16)

	m.Pend(EXC_SYSTICK)
	assert.Equal(2, m.Dispatch())
	assert.Equal([]string{"systick-in", "systick-out", "pendsv"}, order)
}

func TestMachine_WaitForInterrupt(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	ticks := 0
	m.Vector[EXC_SYSTICK] = func() { ticks++ }

	// No wake source: returns.
	m.WaitForInterrupt()
	assert.Equal(1, m.Sleeps)
	assert.Equal(0, ticks)

	m.Store(reg.SYST_RVR, 999)
	m.Store(reg.SYST_CSR, reg.SYST_CSR_TICKINT|reg.SYST_CSR_ENABLE)
	m.WaitForInterrupt()
	assert.Equal(1, ticks)
	assert.Equal(uint64(1000), m.Cycles)

	m.WaitForInterrupt()
	assert.Equal(2, ticks)
	assert.Equal(uint64(2000), m.Cycles)
}

func TestMachine_Halt(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	returned := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Halt()
		returned = true
	}()
	<-done

	assert.True(m.Halted())
	assert.False(returned)
}

func TestMachine_Fault(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	var order []Exception
	m.Vector[EXC_HARDFAULT] = func() { order = append(order, EXC_HARDFAULT) }
	m.Vector[EXC_SYSTICK] = func() {
		order = append(order, EXC_SYSTICK)
		m.Fault()
		order = append(order, EXC_SYSTICK)
	}

	// BASEPRI does not hold a fault off.
	m.SwapBasePri(0x10)
	m.Fault()
	assert.Equal([]Exception{EXC_HARDFAULT}, order)
	m.SwapBasePri(0)

	// Nor does the most urgent configurable priority.
	m.Pend(EXC_SYSTICK)
	m.Dispatch()
	assert.Equal([]Exception{EXC_HARDFAULT, EXC_SYSTICK, EXC_HARDFAULT, EXC_SYSTICK}, order)
	assert.False(m.Pending(EXC_HARDFAULT))

	assert.Equal("HardFault", EXC_HARDFAULT.String())
	assert.Equal("Exception(4)", Exception(4).String())
}

func TestMachine_Journal(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	m.Store(reg.FLASH_ACR, 1)
	m.Store(reg.SCB_VTOR, 0x0800_0000)
	m.Store(reg.FLASH_ACR, 2)

	assert.Equal([]uint32{1, 2}, m.WritesTo(reg.FLASH_ACR))
	assert.Len(m.Writes(), 3)
	assert.Equal(uint32(2), m.Load(reg.FLASH_ACR))

	m.ClearWrites()
	assert.Empty(m.Writes())
}

func TestMachine_Defines(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	defines := map[string]string{}
	for key, value := range m.Defines() {
		defines[key] = value
	}
	assert.Equal("0x8000000", defines["FLASH_ORIGIN"])
	assert.Contains(m.String(), "pllcfgr")
}
