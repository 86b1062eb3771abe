package api

import (
	"errors"

	"gopkg.in/yaml.v3"
)

// Manifest is the top-level schema of a batch file listing the comparisons
// to run.
//
//	shareSymbols: true
//	options:
//	  context: 5
//	  trimEdges: true
//	comparisons:
//	  - name: values
//	    old: {path: deploy/values.yaml, ref: main}
//	    new: {path: deploy/values.yaml, ref: feature}
//	  - old: a.txt
//	    new: b.txt
type Manifest struct {
	ShareSymbols bool                 `yaml:"shareSymbols"`
	Options      ManifestOptions      `yaml:"options"`
	Comparisons  []ManifestComparison `yaml:"comparisons"`
}

// ManifestOptions are diff options. Unset fields inherit the caller's
// defaults.
type ManifestOptions struct {
	Context            *int  `yaml:"context"`
	TrimEdges          *bool `yaml:"trimEdges"`
	CollapseWhitespace *bool `yaml:"collapseWhitespace"`
	FoldCase           *bool `yaml:"foldCase"`
	IgnoreWhitespace   *bool `yaml:"ignoreWhitespace"`
}

// ManifestComparison is one pair of documents. Options override the
// manifest-wide options field by field.
type ManifestComparison struct {
	Name    string           `yaml:"name"`
	Old     ManifestDocument `yaml:"old"`
	New     ManifestDocument `yaml:"new"`
	Options *ManifestOptions `yaml:"options"`
}

// ManifestDocument locates a document. It is written either as a mapping
// with path and ref, or as a bare path.
type ManifestDocument struct {
	Path string `yaml:"path"`
	Ref  string `yaml:"ref"`
}

// UnmarshalYAML accepts a scalar path as well as the mapping form.
func (d *ManifestDocument) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		d.Path = node.Value
		return nil
	case yaml.MappingNode:
		type plain ManifestDocument
		return node.Decode((*plain)(d))
	default:
		return errors.New("document must be a path or a mapping with path and ref")
	}
}
