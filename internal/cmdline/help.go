package cmdline

import (
	"fmt"
	"strings"
)

const helpColumn = 24

// Usage renders the one-line usage summary.
func (p *Parser) Usage() string {
	parts := []string{"usage:", p.Prog, "[-h]"}
	for _, f := range p.flags {
		part := f.Names[0]
		if args := argsUsage(f); args != "" {
			part += " " + args
		}
		if !f.Required {
			part = "[" + part + "]"
		}
		parts = append(parts, part)
	}
	if p.remainder != nil {
		parts = append(parts, p.remainder.metavar+" ...")
	}
	return strings.Join(parts, " ") + "\n"
}

// Help renders the usage line, the description and every option.
func (p *Parser) Help() string {
	var b strings.Builder
	b.WriteString(p.Usage())
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(p.Description))
	}
	if p.remainder != nil {
		b.WriteString("\npositional arguments:\n")
		writeEntry(&b, p.remainder.metavar, p.remainder.help)
	}
	b.WriteString("\noptions:\n")
	writeEntry(&b, "-h, --help", "show this help message and exit")
	for _, f := range p.flags {
		args := argsUsage(f)
		spellings := make([]string, len(f.Names))
		for i, name := range f.Names {
			spellings[i] = name
			if args != "" {
				spellings[i] += " " + args
			}
		}
		help := f.Help
		if f.Append {
			help = strings.TrimSpace(help + " (repeatable)")
		}
		writeEntry(&b, strings.Join(spellings, ", "), help)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, left, help string) {
	if help == "" {
		fmt.Fprintf(b, "  %s\n", left)
		return
	}
	if len(left)+2 >= helpColumn {
		fmt.Fprintf(b, "  %s\n%s%s\n", left, strings.Repeat(" ", helpColumn), help)
		return
	}
	fmt.Fprintf(b, "  %-*s%s\n", helpColumn-2, left, help)
}

func argsUsage(f *Flag) string {
	metavar := f.Metavar
	if metavar == "" {
		metavar = strings.ToUpper(f.Dest)
	}
	switch f.Nargs.kind {
	case nargsExactly:
		fields := strings.Fields(metavar)
		if len(fields) == f.Nargs.n {
			return strings.Join(fields, " ")
		}
		return strings.TrimSpace(strings.Repeat(metavar+" ", f.Nargs.n))
	case nargsZeroOrMore:
		return "[" + metavar + " ...]"
	}
	return metavar
}
