package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Start interactive teleoperation of the simulated arm"`
	Bench       BenchCommand       `command:"bench" description:"Run headless solver convergence benchmarks"`
	Demo        DemoCommand        `command:"demo" description:"Run a single canned target scenario"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armik - IK teleoperation of a simulated six-DOF arm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
