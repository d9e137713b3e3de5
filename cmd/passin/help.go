package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/passin/internal/ui"
)

var (
	// "  --max int   ..." or "  -s, --station string   ..."
	reFlagLine = regexp.MustCompile(`^(\s+(?:-\w, )?--[\w-]+ )(\w+)(\s.*)$`)
	reDefault  = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc renders cobra's usage template and styles it when the
// output is a color terminal.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ColorFor(out) {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}

// colorizeHelpOutput styles cobra help text one line at a time.
func colorizeHelpOutput(help string) string {
	lines := strings.Split(help, "\n")
	for i, line := range lines {
		lines[i] = colorizeHelpLine(line)
	}
	return strings.Join(lines, "\n")
}

func colorizeHelpLine(line string) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return line
	case !strings.HasPrefix(line, " ") && strings.HasSuffix(trimmed, ":"):
		if trimmed == "Usage:" {
			return line
		}
		return ui.RenderAccent(trimmed)
	case strings.HasPrefix(trimmed, "-"):
		if m := reFlagLine.FindStringSubmatch(line); m != nil {
			line = m[1] + ui.RenderMuted(m[2]) + m[3]
		}
		return reDefault.ReplaceAllStringFunc(line, ui.RenderMuted)
	case strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "   "):
		name, rest, ok := strings.Cut(line[2:], "  ")
		if !ok || strings.ContainsAny(name, " <[") {
			return line
		}
		return "  " + ui.RenderCommand(name) + "  " + rest
	}
	return line
}
