package clock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/corehal/reg"
)

func TestSolvePLL(t *testing.T) {
	table := [](struct {
		name    string
		inputHz uint32
		pllHz   uint32
		pll     Pll
	}){
		{"hse-25-200", 25 * MHZ, 200 * MHZ, Pll{M: 25, N: 400, P: 2, Q: 8, RefHz: MHZ, VcoHz: 400 * MHZ}},
		{"hse-25-216", 25 * MHZ, 216 * MHZ, Pll{M: 25, N: 432, P: 2, Q: 9, RefHz: MHZ, VcoHz: 432 * MHZ}},
		{"hse-8-216", 8 * MHZ, 216 * MHZ, Pll{M: 4, N: 216, P: 2, Q: 9, RefHz: 2 * MHZ, VcoHz: 432 * MHZ}},
		{"hsi-16-100", 16 * MHZ, 100 * MHZ, Pll{M: 8, N: 100, P: 2, Q: 4, RefHz: 2 * MHZ, VcoHz: 200 * MHZ}},
		{"hse-48-48", 48 * MHZ, 48 * MHZ, Pll{M: 24, N: 96, P: 4, Q: 4, RefHz: 2 * MHZ, VcoHz: 192 * MHZ}},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			pll, err := SolvePLL(entry.inputHz, entry.pllHz)
			assert.NoError(err)
			assert.Equal(entry.pll, pll)
			assert.Equal(entry.pllHz, pll.OutputHz())
		})
	}
}

func TestSolvePLL_Truncates(t *testing.T) {
	assert := assert.New(t)

	pll, err := SolvePLL(25*MHZ, 100_250_000)
	assert.NoError(err)
	assert.Equal(uint32(2), pll.P)
	assert.Equal(uint32(200), pll.N)
	assert.Equal(100*MHZ, pll.OutputHz())
}

func TestSolvePLL_Unreachable(t *testing.T) {
	table := [](struct {
		name    string
		inputHz uint32
		pllHz   uint32
	}){
		{"output-too-low", 25 * MHZ, 10 * MHZ},
		{"output-too-high", 25 * MHZ, 300 * MHZ},
		{"input-too-low", 1 * MHZ, 200 * MHZ},
		{"input-too-high", 200 * MHZ, 200 * MHZ},
		{"pllm-over-field", 130 * MHZ, 200 * MHZ},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			pll, err := SolvePLL(entry.inputHz, entry.pllHz)
			assert.ErrorIs(err, ErrPllUnreachable)
			var unreachable *ErrUnreachable
			assert.True(errors.As(err, &unreachable))
			assert.Equal(entry.pllHz, unreachable.PllFreqHz)
			assert.Equal(Pll{}, pll)
			assert.Equal(uint32(0), pll.OutputHz())
		})
	}
}

func TestPll_Encode(t *testing.T) {
	assert := assert.New(t)

	pll := Pll{M: 25, N: 432, P: 2, Q: 9}

	value := pll.Encode(PLLSRC_HSE, reg.RCC_PLLCFGR_RESET_VALUE)
	assert.Equal(uint32(0x2000_0000|9<<24|1<<22|432<<6|25), value)

	value = pll.Encode(PLLSRC_HSI, 0xffff_ffff)
	assert.Equal(uint32(0xf000_0000|9<<24|432<<6|25), value)

	pll.P = 8
	decoded, src := DecodePll(pll.Encode(PLLSRC_HSE, 0))
	assert.Equal(PLLSRC_HSE, src)
	assert.Equal(uint32(8), decoded.P)
	assert.Equal(uint32(25), decoded.M)
}

func FuzzSolvePLL(f *testing.F) {
	f.Add(25*MHZ, 216*MHZ)
	f.Add(8*MHZ, 180*MHZ)
	f.Add(16*MHZ, 48*MHZ)
	f.Add(uint32(0), uint32(0))
	f.Add(uint32(0xffff_ffff), uint32(0xffff_ffff))

	f.Fuzz(func(t *testing.T, inputHz uint32, pllHz uint32) {
		assert := assert.New(t)

		pll, err := SolvePLL(inputHz, pllHz)
		if err != nil {
			assert.ErrorIs(err, ErrPllUnreachable)
			return
		}

		assert.GreaterOrEqual(pll.M, uint32(PLLM_MIN))
		assert.LessOrEqual(pll.M, uint32(PLLM_MAX))
		assert.Contains([]uint32{2, 4, 6, 8}, pll.P)
		assert.GreaterOrEqual(pll.VcoHz, VCO_MIN_HZ)
		assert.LessOrEqual(pll.VcoHz, VCO_MAX_HZ)
		assert.LessOrEqual(pll.OutputHz(), pllHz)
		assert.Less(pllHz-pll.OutputHz(), pll.RefHz)

		decoded, src := DecodePll(pll.Encode(PLLSRC_HSI, 0))
		assert.Equal(PLLSRC_HSI, src)
		assert.Equal(pll.M, decoded.M)
		assert.Equal(pll.N, decoded.N)
		assert.Equal(pll.P, decoded.P)
		assert.Equal(pll.Q&reg.RCC_PLLCFGR_PLLQ_Msk, decoded.Q)
	})
}
