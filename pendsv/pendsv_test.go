package pendsv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/corehal/critical"
	"github.com/ezrec/corehal/reg"
	"github.com/ezrec/corehal/sim"
)

func newTrigger() (m *sim.Machine, crit *critical.Controller, tr *Trigger) {
	m = sim.NewMachine()
	crit = critical.New(m)
	tr = New(m, crit)
	m.Vector[sim.EXC_PENDSV] = tr.Handler
	return
}

func TestTrigger(t *testing.T) {
	assert := assert.New(t)

	m, _, tr := newTrigger()

	var got []any
	assert.NoError(tr.Configure(func(param any) { got = append(got, param) }, "work"))
	assert.Equal(uint32(0xf0), m.Priority(sim.EXC_PENDSV))

	for range 3 {
		assert.NoError(tr.Trigger())
	}
	assert.Equal([]any{"work", "work", "work"}, got)
}

func TestTrigger_Replace(t *testing.T) {
	assert := assert.New(t)

	_, _, tr := newTrigger()

	first, second := 0, 0
	assert.NoError(tr.Configure(func(any) { first++ }, nil))
	assert.NoError(tr.Configure(func(any) { second++ }, nil))
	assert.NoError(tr.Trigger())

	assert.Equal(0, first)
	assert.Equal(1, second)
}

func TestTrigger_Unbound(t *testing.T) {
	assert := assert.New(t)

	m, _, tr := newTrigger()

	// Nothing bound at all.
	assert.NoError(tr.Trigger())
	assert.False(m.Pending(sim.EXC_PENDSV))

	calls := 0
	assert.NoError(tr.Configure(func(any) { calls++ }, nil))
	assert.NoError(tr.Configure(nil, nil))
	assert.NoError(tr.Trigger())
	assert.Equal(0, calls)
	assert.False(m.Pending(sim.EXC_PENDSV))

	// Unbinding leaves the priority alone.
	assert.Equal(uint32(0xf0), m.Priority(sim.EXC_PENDSV))
}

func TestTrigger_Deferred(t *testing.T) {
	assert := assert.New(t)

	_, crit, tr := newTrigger()

	calls := 0
	assert.NoError(tr.Configure(func(any) { calls++ }, nil))

	// Held while the section is raised, taken once on restore.
	crit.With(critical.LEVEL_LOWEST, func() {
		assert.NoError(tr.Trigger())
		assert.NoError(tr.Trigger())
		assert.Equal(0, calls)
	})
	assert.Equal(1, calls)
}

func TestTrigger_FromSysTick(t *testing.T) {
	assert := assert.New(t)

	m, _, tr := newTrigger()

	var order []string
	assert.NoError(tr.Configure(func(any) { order = append(order, "pendsv") }, nil))
	m.Store(reg.SCB_SHPR3, 0x40<<24|0xff<<16)
	m.Vector[sim.EXC_SYSTICK] = func() {
		order = append(order, "systick-in")
		tr.Trigger()
		order = append(order, "systick-out")
	}

	m.Pend(sim.EXC_SYSTICK)
	m.Dispatch()
	assert.Equal([]string{"systick-in", "systick-out", "pendsv"}, order)
}

func TestTrigger_ConfigureInsideSection(t *testing.T) {
	assert := assert.New(t)

	m, crit, tr := newTrigger()

	ticks := 0
	m.Vector[sim.EXC_SYSTICK] = func() { ticks++ }
	m.Store(reg.SCB_SHPR3, uint32(0x20)<<reg.SCB_SHPR3_PRI_15_Pos)

	crit.With(critical.LEVEL_HIGHEST, func() {
		m.Pend(sim.EXC_SYSTICK)
		assert.NoError(tr.Configure(func(any) {}, nil))
		assert.Equal(0, ticks)
		assert.Equal(critical.LEVEL_HIGHEST, m.BasePri())
	})
	assert.Equal(1, ticks)
}
