package script

import (
	"regexp"
	"strings"
)

var (
	labelPattern = regexp.MustCompile(`^@([\p{L}\p{N}_]+):`)
	ifPattern    = regexp.MustCompile(`(?i)^if\s*\((.*)\)\s*(@[\p{L}\p{N}_]+)\s*:?[\s;_]*$`)
	gotoPattern  = regexp.MustCompile(`(?i)^goto\s+(@[\p{L}\p{N}_]+)\s*:?[\s;_]*$`)
	callPattern  = regexp.MustCompile(`^([\p{L}_][\p{L}\p{N}_]*)\s*\((.*)$`)
	barePattern  = regexp.MustCompile(`^([\p{L}_][\p{L}\p{N}_]*)[\s;_]*$`)
)

// ParseLine parses a single source line.
// It returns nil for blank lines, comment lines and lines it does not recognize.
func ParseLine(line string, lineNumber int) *Instruction {
	ins, _, _ := parseLine(line, lineNumber)
	return ins
}

// parseLine reports ignorable=true for blank and comment-only lines so that
// ParseProgram can tell them apart from unrecognized syntax. dropped is text on
// the line that was recognized but not kept, such as a command after a label.
func parseLine(line string, lineNumber int) (ins *Instruction, ignorable bool, dropped string) {
	text := strings.TrimSpace(line)
	if text == "" || strings.HasPrefix(text, "//") {
		return nil, true, ""
	}
	text = strings.TrimSpace(stripComment(text))
	if text == "" {
		return nil, true, ""
	}

	if m := labelPattern.FindStringSubmatch(text); m != nil {
		rest := strings.Trim(text[len(m[0]):], " \t;_")
		return &Instruction{
			Name:       "@" + m[1] + ":",
			Parameters: []string{},
			Literal:    text,
			LineNumber: lineNumber,
			IsLabel:    true,
		}, false, rest
	}

	if m := ifPattern.FindStringSubmatch(text); m != nil {
		return &Instruction{
			Name:       "If",
			Parameters: []string{strings.TrimSpace(m[1])},
			Result:     m[2],
			Literal:    text,
			LineNumber: lineNumber,
		}, false, ""
	}

	if m := gotoPattern.FindStringSubmatch(text); m != nil {
		return &Instruction{
			Name:       "Goto",
			Parameters: []string{m[1]},
			Literal:    text,
			LineNumber: lineNumber,
			IsGoto:     true,
		}, false, ""
	}

	if m := callPattern.FindStringSubmatch(text); m != nil {
		return &Instruction{
			Name:       m[1],
			Parameters: ParseParameters(callArguments(m[2])),
			Literal:    text,
			LineNumber: lineNumber,
		}, false, ""
	}

	if m := barePattern.FindStringSubmatch(text); m != nil {
		return &Instruction{
			Name:       m[1],
			Parameters: []string{},
			Literal:    text,
			LineNumber: lineNumber,
		}, false, ""
	}

	return nil, false, ""
}

// stripComment truncates the line at the first "//" that is not inside a quoted string.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case '/':
			if !inQuote && i+1 < len(line) && line[i+1] == '/' {
				return line[:i]
			}
		}
	}
	return line
}

// callArguments returns the text between the opening parenthesis (already consumed)
// and its matching closer. Anything after the closer, such as "_;" or a stray ")",
// is discarded. An unclosed call keeps everything up to the trailing terminators.
func callArguments(rest string) string {
	inQuote := false
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch c := rest[i]; {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return rest[:i]
			}
			depth--
		}
	}
	return strings.TrimRight(rest, " \t;_")
}

// ParseParameters splits an argument list on "," or the full-width "，".
// Separators inside quotes or nested parentheses do not split. One layer of
// surrounding double quotes is removed from each argument.
func ParseParameters(s string) []string {
	params := []string{}
	if strings.TrimSpace(s) == "" {
		return params
	}

	var cur strings.Builder
	inQuote := false
	depth := 0
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case inQuote:
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case (r == ',' || r == '，') && depth == 0:
			params = append(params, unquote(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(params, unquote(cur.String()))
}

func unquote(tok string) string {
	tok = strings.TrimSpace(tok)
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return tok[1 : len(tok)-1]
	}
	return tok
}

// ParseProgram parses a whole script. It never fails: unrecognized lines are
// dropped and recorded as warnings, and an empty program is valid.
func ParseProgram(content, fileName string) *Program {
	p := &Program{
		FileName:     fileName,
		instructions: []Instruction{},
		labels:       make(map[string]int),
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		ins, ignorable, dropped := parseLine(line, i+1)
		if ins == nil {
			if !ignorable {
				p.warnings = append(p.warnings, Warning{Line: i + 1, Text: strings.TrimSpace(line)})
			}
			continue
		}
		if dropped != "" {
			p.warnings = append(p.warnings, Warning{Line: i + 1, Text: strings.TrimSpace(line)})
		}
		if ins.IsLabel {
			p.labels[LabelKey(ins.Name)] = len(p.instructions)
		}
		p.instructions = append(p.instructions, *ins)
	}
	return p
}
