package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed template.schema.json
var templateSchemaJSON []byte

const templateSchemaURL = "https://schemas.studioflow.dev/template.schema.json"

var (
	schemaOnce     sync.Once
	templateSchema *jsonschema.Schema
	schemaErr      error
)

func compiledTemplateSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(templateSchemaURL, bytes.NewReader(templateSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		templateSchema, schemaErr = compiler.Compile(templateSchemaURL)
	})
	return templateSchema, schemaErr
}

// ValidateTemplateDocument checks a JSON template document against the
// embedded schema before it is decoded.
func ValidateTemplateDocument(data []byte) error {
	schema, err := compiledTemplateSchema()
	if err != nil {
		return fmt.Errorf("compile template schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("template document is not valid json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("template document: %w", err)
	}
	return nil
}

// DecodeTemplateDocument validates and decodes a template written as JSON or
// YAML. The result still has to pass ValidateTemplate before it is saved.
func DecodeTemplateDocument(data []byte, isYAML bool) (Template, error) {
	if isYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Template{}, fmt.Errorf("parse template yaml: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return Template{}, fmt.Errorf("convert template yaml: %w", err)
		}
		data = converted
	}
	if err := ValidateTemplateDocument(data); err != nil {
		return Template{}, err
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("decode template: %w", err)
	}
	return t, nil
}

// EncodeTemplatesYAML writes one YAML document per template, keyed by the
// JSON field names in declaration order. Strings are only quoted where
// YAML would otherwise read them as another type.
func EncodeTemplatesYAML(w io.Writer, templates []Template) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, t := range templates {
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode template %s: %w", t.ID, err)
		}
		var node yaml.Node
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return fmt.Errorf("encode template %s: %w", t.ID, err)
		}
		blockStyle(&node)
		if err := enc.Encode(&node); err != nil {
			return err
		}
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
