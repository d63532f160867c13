package jsonedit

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseFieldEdits reads a YAML or JSON mapping of field to value. Values keep
// the text as written: `port: 8080` yields "8080" and `name: '"x"'` yields
// `"x"`, leaving typing to Reinterpret.
func ParseFieldEdits(data []byte) (FieldEdits, error) {
	edits := FieldEdits{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return edits, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "jsonedit: failed to parse edits")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return edits, nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, errors.New("jsonedit: edits must be a mapping of field to value")
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, errors.Errorf("jsonedit: line %d: field name must be a scalar", k.Line)
		}
		if v.Kind == yaml.AliasNode && v.Alias != nil {
			v = v.Alias
		}
		if v.Kind != yaml.ScalarNode {
			return nil, errors.Errorf("jsonedit: line %d: value of %q must be a scalar; quote JSON text to set a structure", v.Line, k.Value)
		}
		edits[k.Value] = v.Value
	}
	return edits, nil
}

// ParseAssignments reads "field=value" pairs. A bare value with no "=" edits
// the node's own value.
func ParseAssignments(pairs []string) (FieldEdits, error) {
	edits := FieldEdits{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			k, v = ValueField, p
		}
		if k == "" {
			return nil, errors.Errorf("jsonedit: empty field name in %q", p)
		}
		edits[k] = v
	}
	return edits, nil
}
