// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package clock

import (
	"github.com/ezrec/corehal/internal"
	"github.com/ezrec/corehal/reg"
)

// PLL limits.
const (
	VCO_MIN_HZ  = 192 * MHZ // Lowest VCO output.
	VCO_MAX_HZ  = 432 * MHZ // Highest VCO output.
	USB_FREQ_HZ = 48 * MHZ  // USB/SDIO auxiliary clock target.
	PLLM_MIN    = 2
	PLLM_MAX    = 63
	PLLP_MAX    = 8
)

// Pll is a solved set of PLL divisors.
type Pll struct {
	M     uint32 // Input divisor.
	N     uint32 // Feedback multiplier.
	P     uint32 // Main output divisor: 2, 4, 6 or 8.
	Q     uint32 // USB/SDIO output divisor.
	RefHz uint32 // Normalized reference, input / M.
	VcoHz uint32 // Target VCO frequency, output * P.
}

// SolvePLL finds the divisors producing pllHz from an inputHz oscillator.
//
// The input is divided down to a 2MHz reference when it is a multiple of
// 2MHz, otherwise to 1MHz. P is the smallest even divisor placing the VCO
// in [VCO_MIN_HZ, VCO_MAX_HZ]. N truncates, so an output that is not a
// multiple of the reference step comes out slightly low.
//
// An input whose M falls outside [PLLM_MIN, PLLM_MAX] does not fit the
// PLLM field and is unreachable whatever the output.
func SolvePLL(inputHz, pllHz uint32) (pll Pll, err error) {
	if inputHz%(2*MHZ) == 0 {
		pll.RefHz = 2 * MHZ
	} else {
		pll.RefHz = MHZ
	}
	pll.M = inputHz / pll.RefHz

	if !internal.Between(pll.M, PLLM_MIN, PLLM_MAX) {
		err = &ErrUnreachable{InputHz: inputHz, PllFreqHz: pllHz}
		pll = Pll{}
		return
	}

	var vco uint64
	for pll.P = 2; pll.P <= PLLP_MAX; pll.P += 2 {
		vco = uint64(pllHz) * uint64(pll.P)
		if internal.Between(vco, uint64(VCO_MIN_HZ), uint64(VCO_MAX_HZ)) {
			break
		}
	}
	if pll.P > PLLP_MAX {
		err = &ErrUnreachable{InputHz: inputHz, PllFreqHz: pllHz}
		pll = Pll{}
		return
	}

	pll.VcoHz = uint32(vco)
	pll.N = pll.VcoHz / pll.RefHz
	pll.Q = pll.VcoHz / USB_FREQ_HZ

	return
}

// OutputHz is the PLL output the divisors actually produce.
func (pll Pll) OutputHz() uint32 {
	if pll.P == 0 {
		return 0
	}
	return pll.RefHz * pll.N / pll.P
}

// Encode packs the divisors and the input selection into RCC_PLLCFGR,
// keeping the reserved bits of current.
func (pll Pll) Encode(src PllSource, current uint32) (value uint32) {
	value = current & reg.RCC_PLLCFGR_RESERVED
	value |= (pll.M & reg.RCC_PLLCFGR_PLLM_Msk) << reg.RCC_PLLCFGR_PLLM_Pos
	value |= (pll.N & reg.RCC_PLLCFGR_PLLN_Msk) << reg.RCC_PLLCFGR_PLLN_Pos
	value |= ((pll.P/2 - 1) & reg.RCC_PLLCFGR_PLLP_Msk) << reg.RCC_PLLCFGR_PLLP_Pos
	value |= (pll.Q & reg.RCC_PLLCFGR_PLLQ_Msk) << reg.RCC_PLLCFGR_PLLQ_Pos
	if src == PLLSRC_HSE {
		value |= reg.RCC_PLLCFGR_PLLSRC_HSE
	}
	return
}

// DecodePll unpacks RCC_PLLCFGR.
func DecodePll(value uint32) (pll Pll, src PllSource) {
	pll.M = (value >> reg.RCC_PLLCFGR_PLLM_Pos) & reg.RCC_PLLCFGR_PLLM_Msk
	pll.N = (value >> reg.RCC_PLLCFGR_PLLN_Pos) & reg.RCC_PLLCFGR_PLLN_Msk
	pll.P = (((value >> reg.RCC_PLLCFGR_PLLP_Pos) & reg.RCC_PLLCFGR_PLLP_Msk) + 1) * 2
	pll.Q = (value >> reg.RCC_PLLCFGR_PLLQ_Pos) & reg.RCC_PLLCFGR_PLLQ_Msk
	if value&reg.RCC_PLLCFGR_PLLSRC_HSE != 0 {
		src = PLLSRC_HSE
	}
	return
}
