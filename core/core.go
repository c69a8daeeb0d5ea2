// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package core orders the bring-up of the processor and carries the
// resulting clock configuration for the layers above.
package core

import (
	"fmt"
	"log"

	"github.com/ezrec/corehal/clock"
	"github.com/ezrec/corehal/critical"
	"github.com/ezrec/corehal/reg"
	"github.com/ezrec/corehal/translate"
)

// Info is the resolved core configuration.
type Info struct {
	Profile clock.Profile // Profile the clocks were configured from.
	Tree    clock.Tree    // Clock tree running, zero before Init.
}

// HclkFreqHz is the core clock: the configured one once Init has run,
// the profile target before.
func (info Info) HclkFreqHz() uint32 {
	if info.Tree.HclkHz != 0 {
		return info.Tree.HclkHz
	}
	return info.Profile.HclkFreqHz
}

// String returns the configuration as a string.
func (info Info) String() (text string) {
	p := &info.Profile
	tree := &info.Tree

	pll := "off"
	if tree.PllOn {
		pll = fmt.Sprintf("%v m=%d n=%d p=%d q=%d", p.PllSource, tree.Pll.M, tree.Pll.N, tree.Pll.P, tree.Pll.Q)
	}

	lines := []struct {
		name  string
		value string
	}{
		{"vtor", fmt.Sprintf("%04X_%04X", p.VectorTable>>16, p.VectorTable&0xffff)},
		{"source", tree.Source.String()},
		{"pll", pll},
		{"sysclk", translate.Hz(tree.SysclkHz)},
		{"hclk", translate.Hz(tree.HclkHz)},
		{"pclk1", translate.Hz(tree.Pclk1Hz)},
		{"pclk2", translate.Hz(tree.Pclk2Hz)},
		{"prigroup", fmt.Sprintf("%d", p.PriorityGroup)},
	}
	for _, line := range lines {
		text += fmt.Sprintf("% 9s: %s\n", line.name, line.value)
	}

	return
}

// Core is the core control of one processor.
type Core struct {
	Verbose bool // Set to enable verbose logging.

	cpu   reg.Processor
	crit  *critical.Controller
	clock *clock.Configurator
	info  Info
}

// New creates the core control, holding the default profile.
func New(bus reg.Bus, cpu reg.Processor) (c *Core) {
	c = &Core{
		cpu:   cpu,
		crit:  critical.New(cpu),
		clock: clock.NewConfigurator(bus),
		info: Info{
			Profile: clock.DefaultProfile(),
		},
	}

	return
}

// Info returns the core configuration.
func (c *Core) Info() Info {
	return c.info
}

// Critical returns the critical section controller of the core.
func (c *Core) Critical() *critical.Controller {
	return c.crit
}

// HclkFreqHz is the core clock frequency.
func (c *Core) HclkFreqHz() uint32 {
	return c.info.HclkFreqHz()
}

// Init configures the clocks. A non-nil override replaces the profile
// first. On failure Info reports the tree the hardware was left running.
func (c *Core) Init(override *clock.Profile) (err error) {
	if override != nil {
		c.info.Profile = *override
	}

	c.clock.Verbose = c.Verbose
	c.info.Tree, err = c.clock.Configure(c.info.Profile)
	if err != nil {
		c.info.Tree = c.clock.Current(c.info.Profile)
		if c.Verbose {
			log.Printf("core: init: %v", err)
		}
		return
	}

	if c.Verbose {
		log.Printf("core: hclk %v", translate.Hz(c.info.Tree.HclkHz))
	}

	return
}

// Fini has nothing to tear down; the clocks stay as configured.
func (c *Core) Fini() (err error) {
	return
}

// Reset is not implemented and always fails.
func (c *Core) Reset() (err error) {
	err = ErrUnimplemented
	return
}

// Stack reads the main stack pointer.
func (c *Core) Stack() uintptr {
	return c.cpu.MSP()
}

// SetStack replaces the main stack pointer. The caller owns its validity.
func (c *Core) SetStack(sp uintptr) (err error) {
	c.cpu.SetMSP(sp)
	return
}

// Sleep enables all interrupts and waits for one. The mode is ignored.
func (c *Core) Sleep(mode uint32) (err error) {
	c.crit.EnterSleep()
	return
}

// RaiseLevel installs an interrupt threshold and returns the previous one.
func (c *Core) RaiseLevel(level uint8) (previous uint8) {
	return c.crit.RaiseLevel(level)
}

// HardFault is the hard fault handler. It stops the processor for good.
func (c *Core) HardFault() {
	if c.Verbose {
		log.Printf("core: hard fault, halting")
	}
	c.cpu.Halt()
}
