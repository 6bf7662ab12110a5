// Package argument declares the parameters a stage accepts: their type
// pattern, default, constraints and documentation, and how each one is exposed
// as a command-line flag.
package argument

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/stagegrid/internal/cmdline"
	"github.com/vk/stagegrid/internal/pattern"
)

var (
	namePattern         = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	abbreviationPattern = regexp.MustCompile(`^-[a-z]$`)
)

// Argument describes one stage parameter. Build it with New; the returned
// value is treated as immutable and is cloned for every stage instance.
type Argument struct {
	// Name is unique within a stage and identifier-safe. The flag is
	// --name with underscores replaced by hyphens.
	Name string
	// Abbreviation is an optional short flag of the form "-x".
	Abbreviation string
	// Type is the pattern values are coerced into. Defaults to pattern.Any.
	Type pattern.Pattern
	// Default is used when no value is supplied. Nil means no default.
	Default  any
	Required bool
	Help     string
	Metavar  string
	// CmdType overrides Type for command-line parsing.
	CmdType pattern.Pattern
	// CmdHelp overrides Help in the command-line help text.
	CmdHelp string
	// ValidValues, when set, must contain every coerced value.
	ValidValues Membership
	// CmdValidate replaces ValidateCmd's default of calling Validate. Use it
	// when CmdType diverges from Type.
	CmdValidate func(a *Argument, value any) (any, error)
}

// New validates the declaration and fills in derived defaults.
func New(a Argument) (*Argument, error) {
	if !namePattern.MatchString(a.Name) {
		return nil, fmt.Errorf("argument name %q is not a valid identifier", a.Name)
	}
	if a.Abbreviation != "" && !abbreviationPattern.MatchString(a.Abbreviation) {
		return nil, fmt.Errorf("argument %s: abbreviation %q must be a dash followed by one lowercase letter", a.Name, a.Abbreviation)
	}
	if a.Type == nil {
		a.Type = pattern.Any
	}
	if a.CmdType == nil {
		a.CmdType = a.Type
	}
	if err := errors.Join(pattern.Validate(a.Type), pattern.Validate(a.CmdType)); err != nil {
		return nil, fmt.Errorf("argument %s: %w", a.Name, err)
	}
	if list, ok := a.CmdType.(pattern.List); ok && len(list) != 1 {
		return nil, fmt.Errorf("argument %s: command-line list types must name their element type", a.Name)
	}
	a.Default = pattern.Clone(a.Default)
	return &a, nil
}

// MustNew is like New but panics on an invalid declaration. It is meant for
// package-level stage definitions.
func MustNew(a Argument) *Argument {
	arg, err := New(a)
	if err != nil {
		panic(err)
	}
	return arg
}

// Clone returns an independent copy, including the default value.
func (a *Argument) Clone() *Argument {
	c := *a
	c.Default = pattern.Clone(a.Default)
	return &c
}

// FlagName returns the long flag spelling, e.g. "--max-count".
func (a *Argument) FlagName() string {
	return "--" + strings.ReplaceAll(a.Name, "_", "-")
}

// Validate coerces value into the argument's pattern and checks ValidValues.
func (a *Argument) Validate(value any) (any, error) {
	result, err := pattern.Match(a.Type, value)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", a.Name, err)
	}
	if a.ValidValues != nil && !a.ValidValues.Contains(result) {
		return nil, &ValidationError{
			Names:   []string{a.Name},
			Value:   result,
			Allowed: a.ValidValues.String(),
		}
	}
	return result, nil
}

// ValidateCmd coerces a value produced by the command-line parser.
func (a *Argument) ValidateCmd(value any) (any, error) {
	if a.CmdValidate != nil {
		return a.CmdValidate(a, value)
	}
	return a.Validate(value)
}

// RegisterParser adds the flag for this argument to p.
//
// Scalar command-line types take one token converted at parse time. A list of
// scalars takes zero or more tokens in one occurrence. A list of tuples is
// repeatable, one tuple per occurrence. A tuple takes exactly as many tokens
// as it has fields, or any number when a field is itself a list; its tokens
// stay raw until ValidateCmd.
func (a *Argument) RegisterParser(p *cmdline.Parser) error {
	names := []string{a.FlagName()}
	if a.Abbreviation != "" {
		names = append(names, a.Abbreviation)
	}
	help := a.Help
	if a.CmdHelp != "" {
		help = a.CmdHelp
	}
	flag := cmdline.Flag{
		Names:    names,
		Dest:     a.Name,
		Nargs:    cmdline.One,
		Convert:  tokenConverter(a.CmdType),
		Required: a.Required,
		Help:     help,
		Metavar:  a.Metavar,
	}

	elem := a.CmdType
	if list, ok := a.CmdType.(pattern.List); ok {
		elem = list[0]
		if _, isTuple := elem.(pattern.Tuple); isTuple {
			flag.Append = true
		} else {
			flag.Nargs = cmdline.ZeroOrMore
			flag.Convert = tokenConverter(elem)
		}
	}
	if tuple, ok := elem.(pattern.Tuple); ok {
		flag.Convert = nil
		flag.Nargs = cmdline.Exactly(len(tuple))
		if len(tuple) == 0 || hasListField(tuple) {
			flag.Nargs = cmdline.ZeroOrMore
		}
	}
	return p.Add(flag)
}

func hasListField(t pattern.Tuple) bool {
	for _, field := range t {
		if _, ok := field.(pattern.List); ok {
			return true
		}
	}
	return false
}

// tokenConverter coerces a single command-line token with p. Dict types read
// the token as a literal first.
func tokenConverter(p pattern.Pattern) func(string) (any, error) {
	if _, ok := p.(pattern.Dict); ok {
		return func(tok string) (any, error) {
			v, err := pattern.ParseLiteral(tok)
			if err != nil {
				return nil, err
			}
			return pattern.Match(p, v)
		}
	}
	return func(tok string) (any, error) {
		return pattern.Match(p, tok)
	}
}
