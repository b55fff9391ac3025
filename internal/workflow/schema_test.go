package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const templateYAML = `
id: tpl_newborn
name: Newborn
session_types: [newborn]
estimated_days: 14
groups:
  - {id: shoot, name: Shoot, order: 1}
  - {id: deliver, name: Deliver, order: 2}
steps:
  - id: shoot
    title: Shoot
    group: shoot
    estimated_hours: 2
  - id: proof
    title: Proof approval
    type: approval
    config: {min_approvals: 1}
    group: deliver
    estimated_hours: 0.5
    due_offset_days: 7
    dependencies: [shoot]
`

func TestDecodeTemplateDocumentYAML(t *testing.T) {
	tpl, err := DecodeTemplateDocument([]byte(templateYAML), true)
	require.NoError(t, err)
	assert.Equal(t, "tpl_newborn", tpl.ID)
	assert.Equal(t, "Newborn", tpl.Name)
	require.Len(t, tpl.Steps, 2)
	assert.Equal(t, ApprovalKind{MinApprovals: 1}, tpl.Steps[1].Kind)
	assert.Equal(t, []string{"shoot"}, tpl.Steps[1].Dependencies)
	assert.NoError(t, ValidateTemplate(tpl))
}

func TestDecodeTemplateDocumentJSON(t *testing.T) {
	doc := `{"name":"Quick","steps":[{"id":"a","title":"A","estimated_hours":1}]}`
	tpl, err := DecodeTemplateDocument([]byte(doc), false)
	require.NoError(t, err)
	assert.Equal(t, StepTypeTask, tpl.Steps[0].Type())
}

func TestDecodeTemplateDocumentRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing name":   `{"steps":[]}`,
		"zero hours":     `{"name":"X","steps":[{"id":"a","title":"A","estimated_hours":0}]}`,
		"bad step type":  `{"name":"X","steps":[{"id":"a","title":"A","estimated_hours":1,"type":"teleport"}]}`,
		"duplicate deps": `{"name":"X","steps":[{"id":"a","title":"A","estimated_hours":1,"dependencies":["b","b"]}]}`,
		"no steps":       `{"name":"X","steps":[]}`,
		"not json":       `{"name":`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTemplateDocument([]byte(doc), false)
			assert.Error(t, err)
		})
	}
}

func TestDecodeTemplateDocumentBadYAML(t *testing.T) {
	_, err := DecodeTemplateDocument([]byte("name: [unclosed"), true)
	assert.Error(t, err)
}

func TestEncodeTemplatesYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	defaults := DefaultTemplates()
	require.NoError(t, EncodeTemplatesYAML(&buf, defaults))

	dec := yaml.NewDecoder(&buf)
	var got []Template
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		tpl, err := DecodeTemplateDocument(raw, false)
		require.NoError(t, err)
		got = append(got, tpl)
	}
	require.Len(t, got, len(defaults))
	for i := range defaults {
		assert.Equal(t, defaults[i].Name, got[i].Name)
		require.Len(t, got[i].Steps, len(defaults[i].Steps))
		for j, step := range defaults[i].Steps {
			assert.Equal(t, step.ID, got[i].Steps[j].ID)
			assert.Equal(t, step.Type(), got[i].Steps[j].Type())
			assert.Equal(t, step.Dependencies, got[i].Steps[j].Dependencies)
		}
	}
}
