package ui

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorMode is the value of PASSIN_COLOR.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// colorMode reads PASSIN_COLOR, falling back to the conventional
// NO_COLOR / CLICOLOR_FORCE / CLICOLOR variables.
func colorMode() ColorMode {
	switch ColorMode(strings.ToLower(strings.TrimSpace(os.Getenv("PASSIN_COLOR")))) {
	case ColorAlways:
		return ColorAlways
	case ColorNever:
		return ColorNever
	}
	// https://no-color.org: any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return ColorAlways
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return ColorNever
	}
	return ColorAuto
}

// ShouldUseColor reports whether ANSI colors should be used on stdout.
func ShouldUseColor() bool { return ColorFor(os.Stdout) }

// ColorFor reports whether ANSI colors should be written to w. In auto mode
// only terminals get color; buffers and pipes never do.
func ColorFor(w io.Writer) bool {
	switch colorMode() {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
