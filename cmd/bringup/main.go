// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ezrec/corehal/emulator"
	"github.com/ezrec/corehal/profile"
)

func main() {
	var board string
	var run uint
	var deferEvery uint
	var verbose bool

	flag.StringVar(&board, "p", "", "Board profile .yaml file (default: built-in profile)")
	flag.UintVar(&run, "n", 10, "Milliseconds to run after bring-up")
	flag.UintVar(&deferEvery, "d", 0, "Trigger deferred work every N milliseconds")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.DeferEvery = uint32(deferEvery)

	target := emulator.DefaultBoard()
	if len(board) != 0 {
		ld := profile.NewLoader(emu.Defines())
		ld.Verbose = verbose

		var err error
		target, err = ld.Load(board)
		if err != nil {
			log.Fatalf("%v: %v", board, err)
		}
	}

	err := emu.Reset(target)
	if err != nil {
		log.Fatalf("%v: %v", target.Name, err)
	}

	fmt.Printf("board: %v\n", target.Name)
	fmt.Print(emu.Core.Info().String())

	err = emu.Run(uint32(run))
	if err != nil {
		log.Fatalf("%v: %v", target.Name, err)
	}

	fmt.Printf("% 9s: %d\n", "ms", emu.TickClk.Ms())
	fmt.Printf("% 9s: %d\n", "us", emu.TickClk.Us())
	fmt.Printf("% 9s: %d\n", "cycles", emu.Cycles)
	fmt.Printf("% 9s: %d\n", "deferred", emu.Deferred)
}
