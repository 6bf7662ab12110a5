package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// Document is the serialized form of a workflow.
type Document struct {
	Storage map[string]any `json:"storage" yaml:"storage"`
	Stages  []stage.Record `json:"stages" yaml:"stages"`
	Scope   map[string]any `json:"scope" yaml:"scope"`
}

// ToJSON serializes the workflow. Run-time scope entries are not part of
// Scope and are never written.
func (w *Workflow) ToJSON() Document {
	doc := Document{
		Storage: w.Storage.Descriptor(),
		Stages:  make([]stage.Record, len(w.Stages)),
		Scope:   make(map[string]any, len(w.Scope)),
	}
	for i, s := range w.Stages {
		doc.Stages[i] = stage.ToJSON(s)
	}
	for k, v := range w.Scope {
		doc.Scope[k] = pattern.JSONValue(v)
	}
	return doc
}

// FromJSON builds a workflow from doc. Each stage type is resolved in the
// registry named by its module_name field, or in registryName when that is
// empty. An invocation record is stamped into the scope metadata.
func FromJSON(ctx context.Context, doc Document, resolve stage.Resolver, registryName string) (*Workflow, error) {
	logger := ctxlog.FromContext(ctx)
	source := doc.clone()

	stages := make([]stage.Stage, 0, len(doc.Stages))
	for i, rec := range doc.Stages {
		reg := registryName
		if rec.ModuleName != "" {
			reg = rec.ModuleName
		}
		def, err := resolve(reg, rec.Type)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		s, err := def.FromJSON(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		stages = append(stages, s)
	}

	st, err := storage.Decode(doc.Storage)
	if err != nil {
		return nil, err
	}

	initial := pattern.Clone(doc.Scope).(map[string]any)
	stampInvocation(initial, map[string]any{
		"name":         "from_JSON",
		"source":       source,
		"module_names": registryName,
	})
	logger.Debug("Workflow loaded from document.", "stages", len(stages), "storage", st.Descriptor()["type"])
	return New(stages, st, initial)
}

// LoadDocument reads a JSON document, or a YAML one for .yaml and .yml files
// and an HCL one for .hcl files.
func LoadDocument(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("reading workflow document: %w", err)
	}
	switch {
	case isYAML(path):
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("parsing workflow document %s: %w", path, err)
		}
		return doc, nil
	case isHCL(path):
		if doc, err = decodeHCL(path, data); err != nil {
			return doc, fmt.Errorf("parsing workflow document %s: %w", path, err)
		}
		return doc, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("parsing workflow document %s: %w", path, err)
	}
	doc.Storage = pattern.NormalizeNumbers(doc.Storage).(map[string]any)
	doc.Scope = pattern.NormalizeNumbers(doc.Scope).(map[string]any)
	for i := range doc.Stages {
		doc.Stages[i].Arguments = pattern.NormalizeNumbers(doc.Stages[i].Arguments).(map[string]any)
	}
	return doc, nil
}

// Freeze writes the workflow document to path, as YAML for .yaml and .yml
// paths, as HCL for .hcl paths and as indented JSON otherwise.
func Freeze(ctx context.Context, w *Workflow, path string) error {
	doc := w.ToJSON()
	var (
		data []byte
		err  error
	)
	switch {
	case isYAML(path):
		data, err = yaml.Marshal(doc)
	case isHCL(path):
		data, err = encodeHCL(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encoding workflow: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing workflow: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Workflow frozen.", "path", path, "stages", len(doc.Stages))
	return nil
}

// IsDocumentPath reports whether path names a loadable workflow document.
func IsDocumentPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json") || isYAML(path) || isHCL(path)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// clone copies doc so it can be kept as provenance while the scope it came
// from is modified.
func (doc Document) clone() Document {
	out := Document{
		Storage: pattern.Clone(doc.Storage).(map[string]any),
		Scope:   pattern.Clone(doc.Scope).(map[string]any),
		Stages:  make([]stage.Record, len(doc.Stages)),
	}
	for i, rec := range doc.Stages {
		rec.Arguments = pattern.Clone(rec.Arguments).(map[string]any)
		out.Stages[i] = rec
	}
	return out
}

// stampInvocation records how the workflow was built under
// scope["metadata"]["invocation"].
func stampInvocation(sc map[string]any, invocation map[string]any) {
	now := time.Now()
	invocation["time"] = now.Format("2006-01-02T15:04:05.000000")
	invocation["time_utc"] = now.UTC().Format("2006-01-02T15:04:05.000000")
	invocation["id"] = uuid.NewString()

	metadata, ok := sc[KeyMetadata].(map[string]any)
	if !ok {
		metadata = make(map[string]any)
	}
	metadata["invocation"] = invocation
	sc[KeyMetadata] = metadata
}
