// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package clock

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/corehal/internal"
)

// Frequency units.
const (
	KHZ = uint32(1_000)
	MHZ = uint32(1_000_000)
)

// ClockMask selects the oscillators to run.
type ClockMask uint32

const (
	CLK_HSI = ClockMask(1 << 0) // Internal RC oscillator.
	CLK_HSE = ClockMask(1 << 1) // External crystal oscillator.
	CLK_PLL = ClockMask(1 << 2) // Main PLL.
)

// ClockSource is the system clock source, in RCC_CFGR.SW encoding.
type ClockSource uint32

//go:generate go tool stringer -linecomment -type=ClockSource
const (
	SOURCE_HSI = ClockSource(0) // HSI
	SOURCE_HSE = ClockSource(1) // HSE
	SOURCE_PLL = ClockSource(2) // PLL
)

// PllSource is the PLL input oscillator.
type PllSource uint32

//go:generate go tool stringer -linecomment -type=PllSource
const (
	PLLSRC_HSI = PllSource(0) // HSI
	PLLSRC_HSE = PllSource(1) // HSE
)

// Limits of the profile fields.
const (
	PRIORITY_GROUP_MAX = 7
	FLASH_LATENCY_MAX  = 15
)

var _clock_defines = map[string]string{
	"KHZ":      fmt.Sprintf("%d", KHZ),
	"MHZ":      fmt.Sprintf("%d", MHZ),
	"CLK_HSI":  fmt.Sprintf("%d", CLK_HSI),
	"CLK_HSE":  fmt.Sprintf("%d", CLK_HSE),
	"CLK_PLL":  fmt.Sprintf("%d", CLK_PLL),
	"HSI":      fmt.Sprintf("%d", SOURCE_HSI),
	"HSE":      fmt.Sprintf("%d", SOURCE_HSE),
	"PLL":      fmt.Sprintf("%d", SOURCE_PLL),
	"VCO_MIN":  fmt.Sprintf("%d", VCO_MIN_HZ),
	"VCO_MAX":  fmt.Sprintf("%d", VCO_MAX_HZ),
	"USB_FREQ": fmt.Sprintf("%d", USB_FREQ_HZ),
}

// Defines returns the symbolic constants usable in profile expressions.
func Defines() iter.Seq2[string, string] {
	return maps.All(_clock_defines)
}

// Profile is the fixed clock and interrupt topology of a board. It is
// read-only once handed to Configure.
type Profile struct {
	VectorTable   uint32      // Vector table base address.
	ClockEnable   ClockMask   // Oscillators to run.
	HclkSource    ClockSource // System clock source.
	PllSource     PllSource   // PLL input oscillator.
	HsiFreqHz     uint32      // Internal oscillator nominal frequency.
	HseFreqHz     uint32      // External oscillator nominal frequency.
	PllFreqHz     uint32      // Target PLL output.
	HclkFreqHz    uint32      // Target core/AHB clock.
	Pclk1FreqHz   uint32      // Target APB1 clock.
	Pclk2FreqHz   uint32      // Target APB2 clock.
	PriorityGroup uint32      // AIRCR.PRIGROUP, 0..7.
	FlashLatency  uint32      // Flash wait states.
	ReadyPolls    uint32      // Ready flag poll cap; 0 waits forever.
}

// DefaultProfile returns the static defaults: 216MHz from a 25MHz crystal.
func DefaultProfile() Profile {
	return Profile{
		VectorTable:   0x0800_0000,
		ClockEnable:   CLK_HSI | CLK_HSE | CLK_PLL,
		HclkSource:    SOURCE_PLL,
		PllSource:     PLLSRC_HSE,
		HsiFreqHz:     16 * MHZ,
		HseFreqHz:     25 * MHZ,
		PllFreqHz:     216 * MHZ,
		HclkFreqHz:    216 * MHZ,
		Pclk1FreqHz:   54 * MHZ,
		Pclk2FreqHz:   108 * MHZ,
		PriorityGroup: 3,
		FlashLatency:  7,
	}
}

// SysclkHz is the frequency of the selected system clock source.
func (p Profile) SysclkHz() (freq uint32) {
	switch p.HclkSource {
	case SOURCE_HSI:
		freq = p.HsiFreqHz
	case SOURCE_HSE:
		freq = p.HseFreqHz
	case SOURCE_PLL:
		freq = p.PllFreqHz
	}
	return
}

// PllInputHz is the frequency of the PLL input oscillator.
func (p Profile) PllInputHz() uint32 {
	if p.PllSource == PLLSRC_HSE {
		return p.HseFreqHz
	}
	return p.HsiFreqHz
}

// Validate checks the profile is self-consistent.
func (p Profile) Validate() (err error) {
	fail := func(field string, cause error) error {
		return &ErrField{Field: field, Err: cause}
	}

	switch {
	case p.HsiFreqHz == 0:
		err = fail("hsi_freq_hz", ErrFrequencyZero)
	case p.ClockEnable&CLK_HSE != 0 && p.HseFreqHz == 0:
		err = fail("hse_freq_hz", ErrFrequencyZero)
	case p.ClockEnable&CLK_PLL != 0 && p.PllFreqHz == 0:
		err = fail("pll_freq_hz", ErrFrequencyZero)
	case p.HclkFreqHz == 0:
		err = fail("hclk_freq_hz", ErrFrequencyZero)
	case p.Pclk1FreqHz == 0:
		err = fail("pclk1_freq_hz", ErrFrequencyZero)
	case p.Pclk2FreqHz == 0:
		err = fail("pclk2_freq_hz", ErrFrequencyZero)
	case p.HclkSource > SOURCE_PLL:
		err = fail("hclk_source", ErrOutOfRange)
	case p.PllSource > PLLSRC_HSE:
		err = fail("pll_source", ErrOutOfRange)
	case p.HclkSource == SOURCE_HSE && p.ClockEnable&CLK_HSE == 0:
		err = fail("hclk_source", ErrSourceDisabled)
	case p.HclkSource == SOURCE_PLL && p.ClockEnable&CLK_PLL == 0:
		err = fail("hclk_source", ErrSourceDisabled)
	case p.ClockEnable&CLK_PLL != 0 && p.PllSource == PLLSRC_HSE && p.ClockEnable&CLK_HSE == 0:
		err = fail("pll_source", ErrSourceDisabled)
	case !internal.Between(p.PriorityGroup, 0, PRIORITY_GROUP_MAX):
		err = fail("priority_group", ErrOutOfRange)
	case !internal.Between(p.FlashLatency, 0, FLASH_LATENCY_MAX):
		err = fail("flash_latency", ErrOutOfRange)
	}

	return
}
