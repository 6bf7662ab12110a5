package pattern

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// ParseLiteral parses text written in a restricted literal grammar: numbers,
// quoted strings, booleans, null, and lists, tuples and mappings of those.
//
// The grammar is the literal subset of HCL expressions, extended with the
// spellings commonly typed on a command line: single-quoted strings,
// parenthesised tuples, True/False/None, and "key": value mappings. Variables,
// function calls and operators other than unary minus and negation are
// rejected, so parsing never evaluates user code.
func ParseLiteral(text string) (any, error) {
	src, err := normalizeLiteral(text)
	if err != nil {
		return nil, err
	}
	if src == "" {
		return nil, errors.New("empty literal")
	}

	expr, diags := hclsyntax.ParseExpression([]byte(src), "literal", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid literal %q: %s", text, diags.Error())
	}
	out, err := ExpressionValue(expr, []byte(src))
	if err != nil {
		return nil, fmt.Errorf("invalid literal %q: %w", text, err)
	}
	return out, nil
}

// ExpressionValue converts an HCL expression parsed from src into the value
// model. Only literal expressions are accepted; references, function calls
// and operators other than negation are errors.
func ExpressionValue(expr hclsyntax.Expression, src []byte) (any, error) {
	diags := hclsyntax.VisitAll(expr, func(node hclsyntax.Node) hcl.Diagnostics {
		switch node.(type) {
		case *hclsyntax.LiteralValueExpr, *hclsyntax.TemplateExpr,
			*hclsyntax.TupleConsExpr, *hclsyntax.ObjectConsExpr,
			*hclsyntax.ObjectConsKeyExpr, *hclsyntax.UnaryOpExpr:
			return nil
		}
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Not a literal",
			Detail:   fmt.Sprintf("%T is not allowed in a literal value", node),
			Subject:  node.Range().Ptr(),
		}}
	})
	if diags.HasErrors() {
		return nil, diags
	}
	return exprToNative(expr, src)
}

// exprToNative converts a parsed literal into the package value model. Numbers
// are typed from their source text, so "1.0" stays a float, and mapping keys
// keep their literal type.
func exprToNative(expr hclsyntax.Expression, src []byte) (any, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		if e.Val.Type() == cty.Number {
			return numberToNative(e.Val, e.SrcRange.SliceBytes(src)), nil
		}

	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			break
		}
		v, err := exprToNative(e.Val, src)
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case int:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, fmt.Errorf("cannot negate %T", v)

	case *hclsyntax.TupleConsExpr:
		out := make([]any, 0, len(e.Exprs))
		for _, item := range e.Exprs {
			v, err := exprToNative(item, src)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case *hclsyntax.ObjectConsExpr:
		return objectToNative(e, src)
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToNative(val)
}

// objectToNative builds a map[string]any when every key is text and a
// map[any]any otherwise.
func objectToNative(e *hclsyntax.ObjectConsExpr, src []byte) (any, error) {
	keys := make([]any, len(e.Items))
	values := make([]any, len(e.Items))
	textKeys := true
	for i, item := range e.Items {
		key, err := objectKey(item.KeyExpr, src)
		if err != nil {
			return nil, err
		}
		switch key.(type) {
		case string:
		case int, float64, bool, nil:
			textKeys = false
		default:
			return nil, fmt.Errorf("unhashable mapping key of type %T", key)
		}
		value, err := exprToNative(item.ValueExpr, src)
		if err != nil {
			return nil, fmt.Errorf("in key %v: %w", key, err)
		}
		keys[i], values[i] = key, value
	}

	if textKeys {
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k.(string)] = values[i]
		}
		return out, nil
	}
	out := make(map[any]any, len(keys))
	for i, k := range keys {
		out[k] = values[i]
	}
	return out, nil
}

// objectKey reads a bare identifier as a text key and anything else as a
// literal value.
func objectKey(expr hclsyntax.Expression, src []byte) (any, error) {
	if k, ok := expr.(*hclsyntax.ObjectConsKeyExpr); ok {
		if name := hcl.ExprAsKeyword(k.Wrapped); name != "" {
			return name, nil
		}
		expr = k.Wrapped
	}
	return exprToNative(expr, src)
}

// numberToNative returns float64 when the source spells a fraction or an
// exponent, and int when the value is integral and fits.
func numberToNative(v cty.Value, text []byte) any {
	bf := v.AsBigFloat()
	if !bytes.ContainsAny(text, ".eE") && bf.IsInt() {
		if n, acc := bf.Int64(); acc == big.Exact {
			return int(n)
		}
	}
	f, _ := bf.Float64()
	return f
}

// normalizeLiteral rewrites the command-line spellings accepted by
// ParseLiteral into plain HCL. Text inside quotes is preserved, with template
// sequences escaped so they stay literal.
func normalizeLiteral(text string) (string, error) {
	src := []rune(strings.TrimSpace(text))
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			end, body, err := readQuoted(src, i)
			if err != nil {
				return "", err
			}
			b.WriteByte('"')
			b.WriteString(body)
			b.WriteByte('"')
			i = end
		case c == '(':
			b.WriteByte('[')
		case c == ')':
			b.WriteByte(']')
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(src[j]) || unicode.IsDigit(src[j]) || src[j] == '_') {
				j++
			}
			word := string(src[i:j])
			switch word {
			case "True":
				word = "true"
			case "False":
				word = "false"
			case "None":
				word = "null"
			}
			b.WriteString(word)
			i = j - 1
		default:
			b.WriteRune(c)
		}
	}
	return b.String(), nil
}

// readQuoted scans the quoted string starting at src[start] and returns the
// index of its closing quote and its body re-escaped for an HCL string.
func readQuoted(src []rune, start int) (int, string, error) {
	quote := src[start]
	var b strings.Builder
	for i := start + 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			next := src[i+1]
			if next == '\'' {
				b.WriteRune('\'')
			} else {
				b.WriteRune('\\')
				b.WriteRune(next)
			}
			i++
		case c == quote:
			return i, b.String(), nil
		case c == '"':
			b.WriteString(`\"`)
		case (c == '$' || c == '%') && i+1 < len(src) && src[i+1] == '{':
			b.WriteRune(c)
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	return 0, "", fmt.Errorf("unterminated string in %q", string(src))
}

// ctyToNative converts an evaluated value into the package value model.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return int(n), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in key %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported literal type %s", ty.FriendlyName())
}
