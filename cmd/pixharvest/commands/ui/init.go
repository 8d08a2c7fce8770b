package ui

import (
	"github.com/fatih/color"
)

var (
	noColorFlag bool
	verboseFlag bool
)

// Init initializes the UI with color and verbose settings.
func Init(noColor, verbose bool) {
	noColorFlag = noColor
	verboseFlag = verbose

	if noColor {
		color.NoColor = true
	}
}

// Verbose reports whether verbose output is enabled.
func Verbose() bool {
	return verboseFlag
}
