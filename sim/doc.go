// Package sim simulates the parts of an STM32F7 microcontroller that the
// core bring-up touches: the RCC oscillator, PLL and bus clock controls,
// the flash accelerator, the system control block, the SysTick timer and
// the PendSV/SysTick exception model with its BASEPRI mask.
//
// The simulation keeps the hardware's ordering rules. A ready flag only
// follows its enable bit, SWS only follows SW towards a ready source,
// PLLCFGR ignores writes while the PLL runs, and the oscillator driving
// SYSCLK cannot be switched off. Every store is journaled so tests can
// check exactly which registers a sequence touched.
package sim
