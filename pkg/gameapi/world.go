// Package gameapi is the reference command set scripts run against: a scoped
// game-data context (World) and the handlers that read and change it.
//
// A real game registers its own handlers on the same vm.Dispatcher; the ones in
// this package cover variables, messages, timing, events and script control so
// that scripts run end-to-end without a game attached.
package gameapi

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Events broadcast by the host.
const (
	// EventDialogClosed is broadcast when the player dismisses a dialog.
	EventDialogClosed = "DIALOG_CLOSED"

	// EventClick is broadcast when the player clicks the game screen.
	EventClick = "CLICK"
)

// maxMessages bounds the message history kept for debug views.
const maxMessages = 32

// Message is one line of text produced by a script.
type Message struct {
	Speaker string
	Text    string
	File    string
	Line    int
}

// World is the game-data context shared by every script of a session.
// Like the manager that drives it, it is used from a single goroutine.
type World struct {
	// BlockOnDialog makes Talk suspend its script until EventDialogClosed.
	BlockOnDialog bool

	// OnMessage, when set, receives every message as it is produced.
	OnMessage func(Message)

	vars     map[string]string
	messages []Message
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		vars: make(map[string]string),
	}
}

// varKey strips the optional "$" sigil.
func varKey(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "$")
}

// Set assigns a variable.
func (w *World) Set(name, value string) {
	w.vars[varKey(name)] = value
}

// Get returns a variable's value.
func (w *World) Get(name string) (string, bool) {
	v, ok := w.vars[varKey(name)]
	return v, ok
}

// Int returns a variable as an integer. Unset and non-numeric variables are 0.
func (w *World) Int(name string) int {
	v, _ := w.Get(name)
	n, _ := toInt(v)
	return n
}

// SetInt assigns an integer variable.
func (w *World) SetInt(name string, n int) {
	w.Set(name, strconv.Itoa(n))
}

// Vars returns the variable names in sorted order.
func (w *World) Vars() []string {
	names := make([]string, 0, len(w.vars))
	for k := range w.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Expand replaces "$Name" references in text with variable values.
// Unknown variables are left as written.
func (w *World) Expand(text string) string {
	if !strings.Contains(text, "$") {
		return text
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '$' {
			b.WriteByte(text[i])
			i++
			continue
		}
		j := i + 1
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if !isIdentRune(r) {
				break
			}
			j += size
		}
		if v, ok := w.vars[text[i+1:j]]; ok && j > i+1 {
			b.WriteString(v)
		} else {
			b.WriteString(text[i:j])
		}
		i = j
	}
	return b.String()
}

// isIdentRune matches the characters script labels and variable names use.
func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Say records a message.
func (w *World) Say(m Message) {
	w.messages = append(w.messages, m)
	if len(w.messages) > maxMessages {
		w.messages = w.messages[len(w.messages)-maxMessages:]
	}
	if w.OnMessage != nil {
		w.OnMessage(m)
	}
}

// Messages returns the most recent messages, oldest first.
func (w *World) Messages() []Message {
	out := make([]Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// toInt parses a decimal integer. The empty string counts as 0.
func toInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
