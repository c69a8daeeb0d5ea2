// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package profile loads board descriptions: a clock profile plus the
// board's tick settings, from YAML.
//
// Every numeric field may be an integer, a define name, or a $(...)
// expression over the defines, for example:
//
//	name: disco-f746
//	tick_priority: TICK_PRIO_MAX
//	profile:
//	  hse_freq_hz: $(25 * MHZ)
//	  pll_freq_hz: $(216 * MHZ)
//	  clock_enable: $(CLK_HSI | CLK_HSE | CLK_PLL)
//
// Fields left out keep the values of clock.DefaultProfile.
package profile

import (
	"errors"
	"io"
	"iter"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ezrec/corehal/clock"
	"github.com/ezrec/corehal/tickclk"
)

// Board is a loaded board description.
type Board struct {
	Name         string        // Board name.
	Profile      clock.Profile // Clock and interrupt topology.
	TickPriority int           // Tick interrupt priority, or tickclk.NO_INTERRUPT.
}

type boardFile struct {
	Name         string      `yaml:"name"`
	TickPriority Expr        `yaml:"tick_priority"`
	Profile      profileFile `yaml:"profile"`
}

type profileFile struct {
	VectorTable   Expr `yaml:"vector_table"`
	ClockEnable   Expr `yaml:"clock_enable"`
	HclkSource    Expr `yaml:"hclk_source"`
	PllSource     Expr `yaml:"pll_source"`
	HsiFreqHz     Expr `yaml:"hsi_freq_hz"`
	HseFreqHz     Expr `yaml:"hse_freq_hz"`
	PllFreqHz     Expr `yaml:"pll_freq_hz"`
	HclkFreqHz    Expr `yaml:"hclk_freq_hz"`
	Pclk1FreqHz   Expr `yaml:"pclk1_freq_hz"`
	Pclk2FreqHz   Expr `yaml:"pclk2_freq_hz"`
	PriorityGroup Expr `yaml:"priority_group"`
	FlashLatency  Expr `yaml:"flash_latency"`
	ReadyPolls    Expr `yaml:"ready_polls"`
}

// Loader reads board files.
type Loader struct {
	Verbose bool // Set to enable verbose logging.

	ev *Evaluator
}

// NewLoader creates a loader resolving names from defines.
func NewLoader(defines iter.Seq2[string, string]) *Loader {
	return &Loader{ev: NewEvaluator(defines)}
}

// Load reads the board file at path.
func (ld *Loader) Load(path string) (board *Board, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	return ld.Parse(inf)
}

// Parse reads a board file. The resulting profile is validated.
func (ld *Loader) Parse(r io.Reader) (board *Board, err error) {
	var bf boardFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err = dec.Decode(&bf)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return
	}

	board = &Board{
		Name:         bf.Name,
		Profile:      clock.DefaultProfile(),
		TickPriority: tickclk.PRIORITY_MAX,
	}
	p := &board.Profile
	pf := &bf.Profile

	fields := [](struct {
		name string
		expr Expr
		set  func(value uint32)
	}){
		{"vector_table", pf.VectorTable, func(v uint32) { p.VectorTable = v }},
		{"clock_enable", pf.ClockEnable, func(v uint32) { p.ClockEnable = clock.ClockMask(v) }},
		{"hclk_source", pf.HclkSource, func(v uint32) { p.HclkSource = clock.ClockSource(v) }},
		{"pll_source", pf.PllSource, func(v uint32) { p.PllSource = clock.PllSource(v) }},
		{"hsi_freq_hz", pf.HsiFreqHz, func(v uint32) { p.HsiFreqHz = v }},
		{"hse_freq_hz", pf.HseFreqHz, func(v uint32) { p.HseFreqHz = v }},
		{"pll_freq_hz", pf.PllFreqHz, func(v uint32) { p.PllFreqHz = v }},
		{"hclk_freq_hz", pf.HclkFreqHz, func(v uint32) { p.HclkFreqHz = v }},
		{"pclk1_freq_hz", pf.Pclk1FreqHz, func(v uint32) { p.Pclk1FreqHz = v }},
		{"pclk2_freq_hz", pf.Pclk2FreqHz, func(v uint32) { p.Pclk2FreqHz = v }},
		{"priority_group", pf.PriorityGroup, func(v uint32) { p.PriorityGroup = v }},
		{"flash_latency", pf.FlashLatency, func(v uint32) { p.FlashLatency = v }},
		{"ready_polls", pf.ReadyPolls, func(v uint32) { p.ReadyPolls = v }},
	}

	for _, field := range fields {
		if len(field.expr) == 0 {
			continue
		}
		var value uint32
		value, err = ld.ev.Uint32(field.expr)
		if err != nil {
			err = &ErrField{Field: field.name, Err: err}
			board = nil
			return
		}
		if ld.Verbose {
			log.Printf("profile: %v = %v (0x%x)", field.name, field.expr, value)
		}
		field.set(value)
	}

	if len(bf.TickPriority) != 0 {
		var prio int64
		prio, err = ld.ev.Eval(bf.TickPriority)
		if err == nil && (prio < tickclk.NO_INTERRUPT || prio > tickclk.PRIORITY_MAX) {
			err = ErrRange
		}
		if err != nil {
			err = &ErrField{Field: "tick_priority", Err: err}
			board = nil
			return
		}
		board.TickPriority = int(prio)
	}

	err = p.Validate()
	if err != nil {
		board = nil
		return
	}

	return
}
