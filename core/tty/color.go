// Package tty decides how shell output is decorated for the terminal.
package tty

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

var (
	ColorBoldBlue  = color.New(color.FgBlue, color.Bold)
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldCyan  = color.New(color.FgCyan, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// ColorPrinter formats text with colors when the mode and output allow it.
// A nil ColorPrinter never colors.
type ColorPrinter struct {
	mode string
	out  *os.File
}

// NewColorPrinter creates a printer for output; mode is one of ColorAlways,
// ColorAuto or ColorNever.
func NewColorPrinter(mode string, out *os.File) *ColorPrinter {
	return &ColorPrinter{mode: mode, out: out}
}

// ShouldColor reports whether output gets colors.
func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case c == nil || c.mode == ColorNever:
		return false
	case c.mode == ColorAlways:
		return true
	default:
		return c.out != nil && term.IsTerminal(int(c.out.Fd()))
	}
}

// Sprintf formats the string, colored if ShouldColor.
func (c *ColorPrinter) Sprintf(col *color.Color, format string, a ...interface{}) string {
	if !c.ShouldColor() {
		return fmt.Sprintf(format, a...)
	}

	// color disables itself globally when stdout isn't a TTY, the mode
	// overrides that.
	forced := *col
	forced.EnableColor()
	return forced.Sprintf(format, a...)
}
