package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zurustar/jxscript/pkg/app"
	"github.com/zurustar/jxscript/pkg/script"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func paint(s lipgloss.Style, color bool, text string) string {
	if !color {
		return text
	}
	return s.Render(text)
}

// printCheck writes one summary line per script followed by its warnings, and
// returns the number of scripts that could not be read.
func printCheck(w io.Writer, results []app.CheckResult, color bool) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s %s: %v\n", paint(errStyle, color, "FAIL"), r.Path, r.Err)
			continue
		}

		status := paint(okStyle, color, "OK  ")
		if len(r.Warnings) > 0 {
			status = paint(warnStyle, color, "WARN")
		}
		fmt.Fprintf(w, "%s %s: %d instructions, %d labels, %d unrecognized\n",
			status, r.Path, r.Instructions, r.Labels, len(r.Warnings))
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "     %s:%d: %s\n", r.Path, warn.Line, warn.Text)
		}
	}
	return failed
}

func countWarnings(results []app.CheckResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Warnings)
	}
	return n
}

// printProgram writes the instruction table and the label table of prog.
func printProgram(w io.Writer, prog *script.Program, color bool) {
	rows := make([][]string, 0, prog.Len())
	for i, ins := range prog.Instructions() {
		kind := "call"
		switch {
		case ins.IsLabel:
			kind = "label"
		case ins.IsGoto:
			kind = "goto"
		case ins.Name == "If":
			kind = "if"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.Itoa(ins.LineNumber),
			kind,
			ins.Name,
			strings.Join(ins.Parameters, " | "),
			ins.Result,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "LINE", "KIND", "NAME", "PARAMETERS", "TARGET").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if !color {
				return s
			}
			if row == table.HeaderRow {
				return s.Inherit(headerStyle)
			}
			if row >= 0 && row < len(rows) && rows[row][2] == "label" {
				return s.Inherit(labelStyle)
			}
			return s
		})

	fmt.Fprintf(w, "%s (%d instructions)\n", paint(headerStyle, color, prog.FileName), prog.Len())
	fmt.Fprintln(w, t.Render())

	labels := prog.Labels()
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\n%s\n", paint(headerStyle, color, "Labels"))
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s -> %d\n", paint(labelStyle, color, name), labels[name])
	}

	if warnings := prog.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", paint(warnStyle, color, "Unrecognized lines"))
		for _, warn := range warnings {
			fmt.Fprintf(w, "  %d: %s\n", warn.Line, warn.Text)
		}
	}
}
