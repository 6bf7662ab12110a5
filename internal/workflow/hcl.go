package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/stage"
)

// An HCL workflow document:
//
//	storage = { type = "DirectoryStorage", root = "out" }
//	scope   = { ratio = 0.25 }
//
//	stage "Save" {
//	  module_name = "stagegrid_modules"
//	  arguments   = { key = "ratio", filename = "ratio.json" }
//	}
//
// Every attribute value must be a literal.
var (
	documentSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "storage"},
			{Name: "scope"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "stage", LabelNames: []string{"type"}},
		},
	}
	stageSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "module_name"},
			{Name: "arguments"},
		},
	}
)

func isHCL(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".hcl")
}

func decodeHCL(path string, data []byte) (Document, error) {
	var doc Document
	file, diags := hclsyntax.ParseConfig(data, path, hcl.InitialPos)
	if diags.HasErrors() {
		return doc, diags
	}
	content, diags := file.Body.Content(documentSchema)
	if diags.HasErrors() {
		return doc, diags
	}

	var err error
	if doc.Storage, err = hclMapping(content.Attributes["storage"], data); err != nil {
		return doc, err
	}
	if doc.Scope, err = hclMapping(content.Attributes["scope"], data); err != nil {
		return doc, err
	}

	doc.Stages = make([]stage.Record, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		body, diags := block.Body.Content(stageSchema)
		if diags.HasErrors() {
			return doc, diags
		}
		rec := stage.Record{Type: block.Labels[0]}
		if attr, ok := body.Attributes["module_name"]; ok {
			v, err := hclValue(attr, data)
			if err != nil {
				return doc, err
			}
			name, ok := v.(string)
			if !ok {
				return doc, fmt.Errorf("%s: module_name must be a string", attr.Range)
			}
			rec.ModuleName = name
		}
		if rec.Arguments, err = hclMapping(body.Attributes["arguments"], data); err != nil {
			return doc, err
		}
		doc.Stages = append(doc.Stages, rec)
	}
	return doc, nil
}

func hclValue(attr *hcl.Attribute, src []byte) (any, error) {
	expr, ok := attr.Expr.(hclsyntax.Expression)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported expression", attr.Range)
	}
	v, err := pattern.ExpressionValue(expr, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", attr.Name, err)
	}
	return v, nil
}

// hclMapping reads an optional attribute holding a mapping with text keys.
func hclMapping(attr *hcl.Attribute, src []byte) (map[string]any, error) {
	if attr == nil {
		return map[string]any{}, nil
	}
	v, err := hclValue(attr, src)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case nil:
		return map[string]any{}, nil
	}
	return nil, fmt.Errorf("%s: %s must be a mapping with string keys", attr.Range, attr.Name)
}

func encodeHCL(doc Document) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	storage, err := hclTokens(doc.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	body.SetAttributeRaw("storage", storage)
	scope, err := hclTokens(doc.Scope)
	if err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}
	body.SetAttributeRaw("scope", scope)

	for i, rec := range doc.Stages {
		body.AppendNewline()
		block := body.AppendNewBlock("stage", []string{rec.Type}).Body()
		if rec.ModuleName != "" {
			block.SetAttributeValue("module_name", cty.StringVal(rec.ModuleName))
		}
		args, err := hclTokens(rec.Arguments)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		block.SetAttributeRaw("arguments", args)
	}
	return f.Bytes(), nil
}

// hclTokens renders v as an HCL literal. Floats always carry a fraction or an
// exponent so they read back as floats. Values outside the value model are
// rendered through their JSON encoding.
func hclTokens(v any) (hclwrite.Tokens, error) {
	switch v := v.(type) {
	case nil:
		return hclwrite.TokensForValue(cty.NullVal(cty.DynamicPseudoType)), nil
	case string:
		return hclwrite.TokensForValue(cty.StringVal(v)), nil
	case bool:
		return hclwrite.TokensForValue(cty.BoolVal(v)), nil
	case int:
		return hclwrite.TokensForValue(cty.NumberIntVal(int64(v))), nil
	case int64:
		return hclwrite.TokensForValue(cty.NumberIntVal(v)), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("cannot represent %v", v)
		}
		text := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(text, ".e") {
			text += ".0"
		}
		return hclwrite.Tokens{{Type: hclsyntax.TokenNumberLit, Bytes: []byte(text)}}, nil
	case []any:
		elems := make([]hclwrite.Tokens, len(v))
		for i, item := range v {
			t, err := hclTokens(item)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return hclwrite.TokensForTuple(elems), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make([]hclwrite.ObjectAttrTokens, len(keys))
		for i, k := range keys {
			t, err := hclTokens(v[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			attrs[i] = hclwrite.ObjectAttrTokens{
				Name:  hclwrite.TokensForValue(cty.StringVal(k)),
				Value: t,
			}
		}
		return hclwrite.TokensForObject(attrs), nil
	case map[any]any:
		return hclTokens(pattern.JSONValue(v))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return hclTokens(pattern.NormalizeNumbers(generic))
}
