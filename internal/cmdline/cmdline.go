// Package cmdline is a small argparse-style command-line parser. Unlike the
// standard flag package it lets a flag consume several tokens per occurrence,
// accumulate repeated occurrences, and stop at the first positional token so
// the rest of the line can be handed to another parser.
package cmdline

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrHelp is returned by Parse when -h or --help was given.
var ErrHelp = errors.New("help requested")

// Error is a malformed command line. Usage holds the usage line of the parser
// that rejected the input.
type Error struct {
	Prog  string
	Usage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: error: %v", e.Prog, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type nargsKind int

const (
	nargsOne nargsKind = iota
	nargsExactly
	nargsZeroOrMore
)

// Nargs is the number of tokens a flag consumes per occurrence.
type Nargs struct {
	kind nargsKind
	n    int
}

var (
	// One consumes exactly one token and stores it unwrapped.
	One = Nargs{kind: nargsOne}
	// ZeroOrMore consumes tokens until the next flag.
	ZeroOrMore = Nargs{kind: nargsZeroOrMore}
)

// Exactly consumes n tokens and stores them as a []any.
func Exactly(n int) Nargs { return Nargs{kind: nargsExactly, n: n} }

// Flag declares one option.
type Flag struct {
	// Names holds the spellings, e.g. "--max-count" and "-m".
	Names []string
	// Dest is the key under which the parsed value is stored.
	Dest  string
	Nargs Nargs
	// Append accumulates every occurrence into a []any.
	Append bool
	// Convert is applied to each consumed token; raw strings are kept when nil.
	Convert  func(string) (any, error)
	Required bool
	Help     string
	Metavar  string
}

type remainder struct {
	dest    string
	metavar string
	help    string
}

// Values maps each supplied Dest to its parsed value. Flags that were not
// given on the command line are absent.
type Values map[string]any

// Parser holds a set of flags and an optional remainder.
type Parser struct {
	Prog        string
	Description string
	// Output receives help text and error reports; nothing is written when nil.
	Output io.Writer

	flags     []*Flag
	byName    map[string]*Flag
	remainder *remainder
}

// New creates an empty parser.
func New(prog, description string, output io.Writer) *Parser {
	return &Parser{
		Prog:        prog,
		Description: description,
		Output:      output,
		byName:      make(map[string]*Flag),
	}
}

// Add registers a flag. Names must start with "-" and be unique.
func (p *Parser) Add(f Flag) error {
	if len(f.Names) == 0 {
		return fmt.Errorf("flag %q has no names", f.Dest)
	}
	if f.Dest == "" {
		return fmt.Errorf("flag %s has no destination", f.Names[0])
	}
	if f.Nargs.kind == nargsExactly && f.Nargs.n < 1 {
		return fmt.Errorf("flag %s: exact token count must be positive", f.Names[0])
	}
	for _, name := range f.Names {
		if !strings.HasPrefix(name, "-") || name == "-" || name == "--" {
			return fmt.Errorf("invalid flag name %q", name)
		}
		if name == "-h" || name == "--help" {
			return fmt.Errorf("flag name %q is reserved", name)
		}
		if _, exists := p.byName[name]; exists {
			return fmt.Errorf("flag %q already registered", name)
		}
	}
	flag := f
	p.flags = append(p.flags, &flag)
	for _, name := range f.Names {
		p.byName[name] = &flag
	}
	return nil
}

// Remainder collects every token from the first positional one onwards, flags
// included, into dest as a []string.
func (p *Parser) Remainder(dest, metavar, help string) {
	p.remainder = &remainder{dest: dest, metavar: metavar, help: help}
}

// Parse reads args. On failure it reports usage and the error to Output and
// returns a *Error; on -h/--help it prints the help text and returns ErrHelp.
func (p *Parser) Parse(args []string) (Values, error) {
	vals := make(Values)
	for i := 0; i < len(args); {
		tok := args[i]

		if tok == "--" {
			rest := args[i+1:]
			if p.remainder != nil {
				vals[p.remainder.dest] = append([]string{}, rest...)
				break
			}
			if len(rest) > 0 {
				return nil, p.fail(fmt.Errorf("unrecognized arguments: %s", strings.Join(rest, " ")))
			}
			break
		}

		if !isFlagToken(tok) {
			if p.remainder != nil {
				vals[p.remainder.dest] = append([]string{}, args[i:]...)
				break
			}
			return nil, p.fail(fmt.Errorf("unrecognized arguments: %s", strings.Join(args[i:], " ")))
		}

		name, inline, hasInline := tok, "", false
		if strings.HasPrefix(tok, "--") {
			if eq := strings.IndexByte(tok, '='); eq > 0 {
				name, inline, hasInline = tok[:eq], tok[eq+1:], true
			}
		}
		if name == "-h" || name == "--help" {
			if p.Output != nil {
				fmt.Fprint(p.Output, p.Help())
			}
			return nil, ErrHelp
		}

		flag, ok := p.byName[name]
		if !ok {
			return nil, p.fail(fmt.Errorf("unrecognized arguments: %s", tok))
		}

		var tokens []string
		i++
		if hasInline {
			tokens = []string{inline}
		} else {
			for i < len(args) && !isFlagToken(args[i]) {
				if flag.Nargs.kind == nargsOne && len(tokens) == 1 {
					break
				}
				if flag.Nargs.kind == nargsExactly && len(tokens) == flag.Nargs.n {
					break
				}
				tokens = append(tokens, args[i])
				i++
			}
		}
		if err := checkCount(flag, tokens); err != nil {
			return nil, p.fail(err)
		}

		value, err := convert(flag, tokens)
		if err != nil {
			return nil, p.fail(err)
		}
		if flag.Append {
			prev, _ := vals[flag.Dest].([]any)
			vals[flag.Dest] = append(prev, value)
		} else {
			vals[flag.Dest] = value
		}
	}

	var missing []string
	for _, f := range p.flags {
		if _, ok := vals[f.Dest]; f.Required && !ok {
			missing = append(missing, f.Names[0])
		}
	}
	if len(missing) > 0 {
		return nil, p.fail(fmt.Errorf("the following arguments are required: %s", strings.Join(missing, ", ")))
	}
	return vals, nil
}

func checkCount(f *Flag, tokens []string) error {
	switch f.Nargs.kind {
	case nargsOne:
		if len(tokens) != 1 {
			return fmt.Errorf("argument %s: expected one argument", strings.Join(f.Names, "/"))
		}
	case nargsExactly:
		if len(tokens) != f.Nargs.n {
			return fmt.Errorf("argument %s: expected %d arguments", strings.Join(f.Names, "/"), f.Nargs.n)
		}
	}
	return nil
}

func convert(f *Flag, tokens []string) (any, error) {
	out := make([]any, len(tokens))
	for i, tok := range tokens {
		if f.Convert == nil {
			out[i] = tok
			continue
		}
		v, err := f.Convert(tok)
		if err != nil {
			return nil, fmt.Errorf("argument %s: invalid value %q: %w", strings.Join(f.Names, "/"), tok, err)
		}
		out[i] = v
	}
	if f.Nargs.kind == nargsOne {
		return out[0], nil
	}
	return out, nil
}

func (p *Parser) fail(err error) error {
	e := &Error{Prog: p.Prog, Usage: p.Usage(), Err: err}
	if p.Output != nil {
		fmt.Fprint(p.Output, e.Usage)
		fmt.Fprintln(p.Output, e.Error())
	}
	return e
}

// isFlagToken reports whether tok names an option rather than a value.
// Negative numbers are values.
func isFlagToken(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}
