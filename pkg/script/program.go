package script

import "strings"

// Instruction is one parsed script line.
//
// Name is the instruction mnemonic ("If", "Goto", a command name) or, for labels,
// the label text including its trailing colon ("@Begin:"). Parameters are kept as
// raw strings; coercion happens in the command handlers.
type Instruction struct {
	Name       string
	Parameters []string
	Result     string // jump target of an If instruction
	Literal    string // source text with comments removed
	LineNumber int    // 1-indexed source line
	IsGoto     bool
	IsLabel    bool
}

// Warning describes a source line the parser could not recognize.
type Warning struct {
	Line int
	Text string
}

// Program is the immutable parsed form of one script file.
// It holds no per-run state and may be shared by any number of running instances.
// Instructions are only reachable through accessors that return copies.
type Program struct {
	FileName string

	instructions []Instruction
	labels       map[string]int
	warnings     []Warning
}

// LabelKey normalizes a label definition ("@Begin:") or a jump target ("@Begin")
// to the key used in the label table.
func LabelKey(label string) string {
	return strings.TrimSuffix(strings.TrimSpace(label), ":")
}

// Label returns the instruction index of the given label or jump target.
func (p *Program) Label(name string) (int, bool) {
	idx, ok := p.labels[LabelKey(name)]
	return idx, ok
}

// Labels returns a copy of the label table.
func (p *Program) Labels() map[string]int {
	out := make(map[string]int, len(p.labels))
	for k, v := range p.labels {
		out[k] = v
	}
	return out
}

// Warnings returns the unrecognized lines collected while parsing.
func (p *Program) Warnings() []Warning {
	out := make([]Warning, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.instructions)
}

// At returns a copy of the instruction at index i. It panics if i is out of range.
func (p *Program) At(i int) Instruction {
	return p.instructions[i].clone()
}

// Instructions returns a copy of every instruction in order.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.instructions))
	for i, ins := range p.instructions {
		out[i] = ins.clone()
	}
	return out
}

func (ins Instruction) clone() Instruction {
	params := make([]string, len(ins.Parameters))
	copy(params, ins.Parameters)
	ins.Parameters = params
	return ins
}

// Literals returns the source text of every instruction in order.
func (p *Program) Literals() []string {
	out := make([]string, len(p.instructions))
	for i, ins := range p.instructions {
		out[i] = ins.Literal
	}
	return out
}
