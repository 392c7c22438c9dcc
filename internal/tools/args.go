package tools

import "strings"

// ArgParser splits a driver argument string into words. Words are separated
// by spaces; a double-quoted word may contain spaces and is taken without
// its quotes. A quote inside a word ends that word.
type ArgParser struct {
	argString string
	argv      []string
	argc      int
}

// NewArgParser tokenizes arg.
func NewArgParser(arg string) *ArgParser {
	p := &ArgParser{argString: arg, argv: tokenize(arg)}
	for _, a := range p.argv {
		if strings.HasPrefix(a, "-") {
			p.argc++
		}
	}
	return p
}

// ArgString returns the original argument string.
func (p *ArgParser) ArgString() string { return p.argString }

// Argv returns the words.
func (p *ArgParser) Argv() []string { return p.argv }

// NumArgv returns the number of words.
func (p *ArgParser) NumArgv() int { return len(p.argv) }

// Argc returns the number of options, the words starting with '-'.
func (p *ArgParser) Argc() int { return p.argc }

func tokenize(s string) []string {
	var args []string
	i := 0
	for {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) {
			return args
		}

		if s[i] == '"' {
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				// Unterminated: the rest of the string.
				return append(args, s[i+1:])
			}
			args = append(args, s[i+1:i+1+end])
			i += end + 2
			continue
		}

		end := strings.IndexAny(s[i:], " \"")
		if end < 0 {
			return append(args, s[i:])
		}
		args = append(args, s[i:i+end])
		i += end
	}
}
