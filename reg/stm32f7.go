// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package reg

// STM32F7 peripheral register addresses used by the bring-up sequence.
const (
	RCC_BASE     = uintptr(0x4002_3800)
	RCC_CR       = RCC_BASE + 0x00
	RCC_PLLCFGR  = RCC_BASE + 0x04
	RCC_CFGR     = RCC_BASE + 0x08
	FLASH_BASE   = uintptr(0x4002_3C00)
	FLASH_ACR    = FLASH_BASE + 0x00
	SYSTICK_BASE = uintptr(0xE000_E010)
	SYST_CSR     = SYSTICK_BASE + 0x00
	SYST_RVR     = SYSTICK_BASE + 0x04
	SYST_CVR     = SYSTICK_BASE + 0x08
	SYST_CALIB   = SYSTICK_BASE + 0x0C
	SCB_BASE     = uintptr(0xE000_ED00)
	SCB_ICSR     = SCB_BASE + 0x04
	SCB_VTOR     = SCB_BASE + 0x08
	SCB_AIRCR    = SCB_BASE + 0x0C
	SCB_CCR      = SCB_BASE + 0x14
	SCB_SHPR2    = SCB_BASE + 0x1C
	SCB_SHPR3    = SCB_BASE + 0x20
	SCB_CCSIDR   = SCB_BASE + 0x80
	SCB_CSSELR   = SCB_BASE + 0x84
	SCB_ICIALLU  = uintptr(0xE000_EF50)
	SCB_DCISW    = uintptr(0xE000_EF60)
)

// RCC_CR bits.
const (
	RCC_CR_HSION  = uint32(1 << 0)
	RCC_CR_HSIRDY = uint32(1 << 1)
	RCC_CR_HSEON  = uint32(1 << 16)
	RCC_CR_HSERDY = uint32(1 << 17)
	RCC_CR_PLLON  = uint32(1 << 24)
	RCC_CR_PLLRDY = uint32(1 << 25)
)

// RCC_PLLCFGR fields.
const (
	RCC_PLLCFGR_PLLM_Pos    = 0
	RCC_PLLCFGR_PLLM_Msk    = uint32(0x3f)
	RCC_PLLCFGR_PLLN_Pos    = 6
	RCC_PLLCFGR_PLLN_Msk    = uint32(0x1ff)
	RCC_PLLCFGR_PLLP_Pos    = 16
	RCC_PLLCFGR_PLLP_Msk    = uint32(0x3)
	RCC_PLLCFGR_PLLSRC_HSE  = uint32(1 << 22)
	RCC_PLLCFGR_PLLQ_Pos    = 24
	RCC_PLLCFGR_PLLQ_Msk    = uint32(0xf)
	RCC_PLLCFGR_RESERVED    = uint32(0xf000_0000)
	RCC_PLLCFGR_RESET_VALUE = uint32(0x2400_3010)
)

// RCC_CFGR fields.
const (
	RCC_CFGR_SW_Pos    = 0
	RCC_CFGR_SW_Msk    = uint32(0x3)
	RCC_CFGR_SWS_Pos   = 2
	RCC_CFGR_SWS_Msk   = uint32(0x3)
	RCC_CFGR_HPRE_Pos  = 4
	RCC_CFGR_HPRE_Msk  = uint32(0xf)
	RCC_CFGR_PPRE1_Pos = 10
	RCC_CFGR_PPRE1_Msk = uint32(0x7)
	RCC_CFGR_PPRE2_Pos = 13
	RCC_CFGR_PPRE2_Msk = uint32(0x7)
)

// FLASH_ACR fields.
const (
	FLASH_ACR_LATENCY_Msk = uint32(0xf)
	FLASH_ACR_PRFTEN      = uint32(1 << 8)
	FLASH_ACR_ARTEN       = uint32(1 << 9)
)

// SysTick CSR bits and reload width.
const (
	SYST_CSR_ENABLE    = uint32(1 << 0)
	SYST_CSR_TICKINT   = uint32(1 << 1)
	SYST_CSR_CLKSOURCE = uint32(1 << 2)
	SYST_CSR_COUNTFLAG = uint32(1 << 16)
	SYST_RVR_RELOAD    = uint32(0x00ff_ffff)
)

// SCB fields.
const (
	SCB_ICSR_PENDSTCLR     = uint32(1 << 25)
	SCB_ICSR_PENDSTSET     = uint32(1 << 26)
	SCB_ICSR_PENDSVCLR     = uint32(1 << 27)
	SCB_ICSR_PENDSVSET     = uint32(1 << 28)
	SCB_VTOR_TBLOFF        = uint32(0xffff_ff80)
	SCB_AIRCR_VECTKEY      = uint32(0x05fa_0000)
	SCB_AIRCR_VECTKEYSTAT  = uint32(0xfa05_0000)
	SCB_AIRCR_PRIGROUP_Pos = 8
	SCB_AIRCR_PRIGROUP_Msk = uint32(0x7)
	SCB_CCR_DC             = uint32(1 << 16)
	SCB_CCR_IC             = uint32(1 << 17)
	SCB_SHPR3_PRI_14_Pos   = 16 // PendSV
	SCB_SHPR3_PRI_15_Pos   = 24 // SysTick
	SCB_SHPR_PRI_Msk       = uint32(0xff)
)

// CCSIDR geometry fields.
const (
	SCB_CCSIDR_LINESIZE_Msk = uint32(0x7)
	SCB_CCSIDR_ASSOC_Pos    = 3
	SCB_CCSIDR_ASSOC_Msk    = uint32(0x3ff)
	SCB_CCSIDR_NUMSETS_Pos  = 13
	SCB_CCSIDR_NUMSETS_Msk  = uint32(0x7fff)
)

// PRIORITY_BITS is the number of implemented priority bits; the
// remaining low bits of every priority field read as zero.
const PRIORITY_BITS = 4

// PRIORITY_MASK keeps the implemented priority bits of a level.
const PRIORITY_MASK = uint8(0xff << (8 - PRIORITY_BITS) & 0xff)
