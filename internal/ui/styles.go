package ui

import (
	"strconv"
	"sync/atomic"
)

// style is an xterm-256 foreground color.
type style uint8

const (
	accent  style = 74  // headings
	command style = 250 // command names in help
	muted   style = 245 // flag types, defaults, idle times
	ok      style = 114 // admitted, healthy
	fail    style = 203 // refused, errors
)

var plain atomic.Bool

func (s style) paint(text string) string {
	if plain.Load() || text == "" {
		return text
	}
	return "\x1b[38;5;" + strconv.Itoa(int(s)) + "m" + text + "\x1b[0m"
}

func RenderAccent(s string) string { return accent.paint(s) }
func RenderCommand(s string) string { return command.paint(s) }
func RenderMuted(s string) string { return muted.paint(s) }

// RenderOK marks success: admitted tickets, a healthy server.
func RenderOK(s string) string { return ok.paint(s) }

// RenderFail marks refusals and errors.
func RenderFail(s string) string { return fail.paint(s) }

// ForceNoColor turns every Render function into the identity for the rest
// of the process.
func ForceNoColor() { plain.Store(true) }
