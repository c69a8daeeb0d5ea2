// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package clock

import (
	"log"

	"github.com/ezrec/corehal/reg"
)

// Tree is the clock configuration Configure installed.
type Tree struct {
	Source   ClockSource // System clock source.
	SysclkHz uint32      // System clock.
	HclkHz   uint32      // Core/AHB clock.
	Pclk1Hz  uint32      // APB1 clock.
	Pclk2Hz  uint32      // APB2 clock.
	Hpre     uint32      // AHB divisor.
	Ppre1    uint32      // APB1 divisor.
	Ppre2    uint32      // APB2 divisor.
	PllOn    bool        // Main PLL running.
	Pll      Pll         // Main PLL divisors, when PllOn.
}

type prescale struct {
	div  uint32
	code uint32
}

var ahbPrescale = []prescale{
	{1, 0b0000}, {2, 0b1000}, {4, 0b1001}, {8, 0b1010}, {16, 0b1011},
	{64, 0b1100}, {128, 0b1101}, {256, 0b1110}, {512, 0b1111},
}

var apbPrescale = []prescale{
	{1, 0b000}, {2, 0b100}, {4, 0b101}, {8, 0b110}, {16, 0b111},
}

// divide picks the smallest divisor that keeps in/div at or below target.
func divide(table []prescale, in, target uint32) (ps prescale, out uint32) {
	for _, ps = range table {
		if in/ps.div <= target {
			break
		}
	}
	out = in / ps.div
	return
}

// Configurator drives the clock tree from its power-on state to a Profile.
type Configurator struct {
	Verbose bool // Set to enable verbose logging.

	cr      reg.Register
	pllcfgr reg.Register
	cfgr    reg.Register
	acr     reg.Register
	ccr     reg.Register
	csselr  reg.Register
	ccsidr  reg.Register
	iciallu reg.Register
	dcisw   reg.Register
	vtor    reg.Register
	aircr   reg.Register

	polls uint32
}

// NewConfigurator creates a configurator on bus.
func NewConfigurator(bus reg.Bus) *Configurator {
	return &Configurator{
		cr:      reg.At(bus, reg.RCC_CR),
		pllcfgr: reg.At(bus, reg.RCC_PLLCFGR),
		cfgr:    reg.At(bus, reg.RCC_CFGR),
		acr:     reg.At(bus, reg.FLASH_ACR),
		ccr:     reg.At(bus, reg.SCB_CCR),
		csselr:  reg.At(bus, reg.SCB_CSSELR),
		ccsidr:  reg.At(bus, reg.SCB_CCSIDR),
		iciallu: reg.At(bus, reg.SCB_ICIALLU),
		dcisw:   reg.At(bus, reg.SCB_DCISW),
		vtor:    reg.At(bus, reg.SCB_VTOR),
		aircr:   reg.At(bus, reg.SCB_AIRCR),
	}
}

// await polls until ready reports true. With a zero poll cap it waits
// for as long as the hardware takes.
func (c *Configurator) await(flag string, ready func() bool) (err error) {
	for n := uint32(0); !ready(); n++ {
		if c.polls != 0 && n >= c.polls {
			err = &ErrNotReady{Flag: flag, Polls: c.polls}
			return
		}
	}
	return
}

func (c *Configurator) sws() ClockSource {
	return ClockSource((c.cfgr.Get() >> reg.RCC_CFGR_SWS_Pos) & reg.RCC_CFGR_SWS_Msk)
}

// enableCaches turns on the instruction and data caches, invalidating
// each first. A cache already on is left alone.
func (c *Configurator) enableCaches() {
	if !c.ccr.HasBits(reg.SCB_CCR_IC) {
		c.iciallu.Set(0)
		c.ccr.SetBits(reg.SCB_CCR_IC)
	}

	if !c.ccr.HasBits(reg.SCB_CCR_DC) {
		c.csselr.Set(0)
		ccsidr := c.ccsidr.Get()
		sets := (ccsidr >> reg.SCB_CCSIDR_NUMSETS_Pos) & reg.SCB_CCSIDR_NUMSETS_Msk
		ways := (ccsidr >> reg.SCB_CCSIDR_ASSOC_Pos) & reg.SCB_CCSIDR_ASSOC_Msk
		for set := int(sets); set >= 0; set-- {
			for way := int(ways); way >= 0; way-- {
				c.dcisw.Set(uint32(set)<<5 | uint32(way)<<30)
			}
		}
		c.ccr.SetBits(reg.SCB_CCR_DC)
	}
}

// Configure installs profile p. On an unreachable PLL target the system
// clock is left on the internal oscillator with the PLL off.
func (c *Configurator) Configure(p Profile) (tree Tree, err error) {
	err = p.Validate()
	if err != nil {
		return
	}

	c.polls = p.ReadyPolls

	// Caches and the flash accelerator.
	c.enableCaches()
	c.acr.SetBits(reg.FLASH_ACR_ARTEN | reg.FLASH_ACR_PRFTEN)
	c.acr.ReplaceBits(p.FlashLatency, reg.FLASH_ACR_LATENCY_Msk, 0)

	// Internal oscillator as the fallback system clock.
	c.cr.SetBits(reg.RCC_CR_HSION)
	err = c.await("HSIRDY", func() bool { return c.cr.HasBits(reg.RCC_CR_HSIRDY) })
	if err != nil {
		return
	}
	c.cfgr.ClearBits(reg.RCC_CFGR_SW_Msk << reg.RCC_CFGR_SW_Pos)
	err = c.await("SWS", func() bool { return c.sws() == SOURCE_HSI })
	if err != nil {
		return
	}
	if c.Verbose {
		log.Printf("clock: sysclk on HSI")
	}

	// External oscillator.
	if p.ClockEnable&CLK_HSE != 0 {
		c.cr.SetBits(reg.RCC_CR_HSEON)
		err = c.await("HSERDY", func() bool { return c.cr.HasBits(reg.RCC_CR_HSERDY) })
		if err != nil {
			return
		}
		if c.Verbose {
			log.Printf("clock: HSE ready")
		}
	} else {
		c.cr.ClearBits(reg.RCC_CR_HSEON)
	}

	// Main PLL.
	c.cr.ClearBits(reg.RCC_CR_PLLON)
	if p.ClockEnable&CLK_PLL != 0 {
		tree.Pll, err = SolvePLL(p.PllInputHz(), p.PllFreqHz)
		if err != nil {
			if c.Verbose {
				log.Printf("clock: %v", err)
			}
			return
		}
		if c.Verbose {
			log.Printf("clock: pll %v m=%d n=%d p=%d q=%d", p.PllSource, tree.Pll.M, tree.Pll.N, tree.Pll.P, tree.Pll.Q)
		}

		c.pllcfgr.Set(tree.Pll.Encode(p.PllSource, c.pllcfgr.Get()))
		c.cr.SetBits(reg.RCC_CR_PLLON)
		err = c.await("PLLRDY", func() bool { return c.cr.HasBits(reg.RCC_CR_PLLRDY) })
		if err != nil {
			return
		}
		tree.PllOn = true
	}

	// Bus prescalers, before the switch.
	tree.Source = p.HclkSource
	tree.SysclkHz = p.SysclkHz()
	if tree.Source == SOURCE_PLL {
		tree.SysclkHz = tree.Pll.OutputHz()
	}

	var hpre, ppre1, ppre2 prescale
	hpre, tree.HclkHz = divide(ahbPrescale, tree.SysclkHz, p.HclkFreqHz)
	ppre1, tree.Pclk1Hz = divide(apbPrescale, tree.HclkHz, p.Pclk1FreqHz)
	ppre2, tree.Pclk2Hz = divide(apbPrescale, tree.HclkHz, p.Pclk2FreqHz)
	tree.Hpre, tree.Ppre1, tree.Ppre2 = hpre.div, ppre1.div, ppre2.div

	cfgr := c.cfgr.Get()
	cfgr &^= reg.RCC_CFGR_HPRE_Msk<<reg.RCC_CFGR_HPRE_Pos |
		reg.RCC_CFGR_PPRE1_Msk<<reg.RCC_CFGR_PPRE1_Pos |
		reg.RCC_CFGR_PPRE2_Msk<<reg.RCC_CFGR_PPRE2_Pos
	cfgr |= hpre.code<<reg.RCC_CFGR_HPRE_Pos |
		ppre1.code<<reg.RCC_CFGR_PPRE1_Pos |
		ppre2.code<<reg.RCC_CFGR_PPRE2_Pos
	c.cfgr.Set(cfgr)

	// System clock switch.
	c.cfgr.ReplaceBits(uint32(p.HclkSource), reg.RCC_CFGR_SW_Msk, reg.RCC_CFGR_SW_Pos)
	err = c.await("SWS", func() bool { return c.sws() == p.HclkSource })
	if err != nil {
		return
	}
	if c.Verbose {
		log.Printf("clock: sysclk on %v, hclk=%d pclk1=%d pclk2=%d", p.HclkSource, tree.HclkHz, tree.Pclk1Hz, tree.Pclk2Hz)
	}

	// Vector table and priority grouping last.
	c.vtor.Set(p.VectorTable)
	c.aircr.Set(reg.SCB_AIRCR_VECTKEY | (p.PriorityGroup&reg.SCB_AIRCR_PRIGROUP_Msk)<<reg.SCB_AIRCR_PRIGROUP_Pos)

	return
}

// undivide maps a prescaler field code back to its divisor. Codes below
// the first dividing entry all mean undivided.
func undivide(table []prescale, code uint32) (div uint32) {
	div = 1
	for _, ps := range table {
		if ps.code == code {
			div = ps.div
		}
	}
	return
}

// Current reads back the clock tree the hardware is running, taking the
// oscillator frequencies from p.
func (c *Configurator) Current(p Profile) (tree Tree) {
	tree.Source = c.sws()
	tree.PllOn = c.cr.HasBits(reg.RCC_CR_PLLRDY)

	if tree.PllOn {
		var src PllSource
		tree.Pll, src = DecodePll(c.pllcfgr.Get())
		input := p.HsiFreqHz
		if src == PLLSRC_HSE {
			input = p.HseFreqHz
		}
		if tree.Pll.M != 0 {
			tree.Pll.RefHz = input / tree.Pll.M
			tree.Pll.VcoHz = tree.Pll.RefHz * tree.Pll.N
		}
	}

	switch tree.Source {
	case SOURCE_HSI:
		tree.SysclkHz = p.HsiFreqHz
	case SOURCE_HSE:
		tree.SysclkHz = p.HseFreqHz
	case SOURCE_PLL:
		tree.SysclkHz = tree.Pll.OutputHz()
	}

	cfgr := c.cfgr.Get()
	tree.Hpre = undivide(ahbPrescale, (cfgr>>reg.RCC_CFGR_HPRE_Pos)&reg.RCC_CFGR_HPRE_Msk)
	tree.Ppre1 = undivide(apbPrescale, (cfgr>>reg.RCC_CFGR_PPRE1_Pos)&reg.RCC_CFGR_PPRE1_Msk)
	tree.Ppre2 = undivide(apbPrescale, (cfgr>>reg.RCC_CFGR_PPRE2_Pos)&reg.RCC_CFGR_PPRE2_Msk)

	tree.HclkHz = tree.SysclkHz / tree.Hpre
	tree.Pclk1Hz = tree.HclkHz / tree.Ppre1
	tree.Pclk2Hz = tree.HclkHz / tree.Ppre2

	return
}
