// Package manifest loads batch manifests (see api.Manifest) into domain
// batches.
package manifest

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/linediff/api"
	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/ports"
)

// Adapter implements ports.ManifestPort. The manifest is read through a
// SourcePort, so it can live on disk or in a repository next to the files
// it names.
type Adapter struct {
	defaults domain.DiffOptions
}

// New creates a manifest loader. Options the manifest leaves unset take
// their value from defaults.
func New(defaults domain.DiffOptions) *Adapter {
	return &Adapter{defaults: defaults}
}

// Load fetches and parses the manifest at ref.
func (a *Adapter) Load(ctx context.Context, source ports.SourcePort, ref domain.DocumentRef) (domain.Batch, error) {
	content, err := source.Fetch(ctx, ref)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("fetching manifest %s: %w", ref, err)
	}
	batch, err := Parse(content, a.defaults)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("manifest %s: %w", ref, err)
	}
	return batch, nil
}

// Parse decodes manifest YAML into a batch.
func Parse(content []byte, defaults domain.DiffOptions) (domain.Batch, error) {
	var m api.Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return domain.Batch{}, fmt.Errorf("parsing manifest YAML: %w", err)
	}
	if len(m.Comparisons) == 0 {
		return domain.Batch{}, errors.New("manifest lists no comparisons")
	}

	base, err := applyOptions(defaults, m.Options)
	if err != nil {
		return domain.Batch{}, err
	}

	batch := domain.Batch{
		ShareSymbols: m.ShareSymbols,
		Options:      base,
		Requests:     make([]domain.DiffRequest, 0, len(m.Comparisons)),
	}
	for i, c := range m.Comparisons {
		if c.Old.Path == "" || c.New.Path == "" {
			return domain.Batch{}, fmt.Errorf("comparison %d: old and new paths are required", i)
		}
		opts := base
		if c.Options != nil {
			if opts, err = applyOptions(base, *c.Options); err != nil {
				return domain.Batch{}, fmt.Errorf("comparison %d: %w", i, err)
			}
		}
		name := c.Name
		if name == "" {
			name = c.New.Path
		}
		batch.Requests = append(batch.Requests, domain.DiffRequest{
			Name:    name,
			Source:  domain.DocumentRef{Path: c.Old.Path, Ref: c.Old.Ref},
			Target:  domain.DocumentRef{Path: c.New.Path, Ref: c.New.Ref},
			Options: opts,
		})
	}
	return batch, nil
}

func applyOptions(base domain.DiffOptions, o api.ManifestOptions) (domain.DiffOptions, error) {
	if o.Context != nil {
		if *o.Context < 0 {
			return base, fmt.Errorf("context must not be negative, got %d", *o.Context)
		}
		base.ContextSize = *o.Context
	}
	setBool(&base.Normalization.TrimEdges, o.TrimEdges)
	setBool(&base.Normalization.CollapseWhitespace, o.CollapseWhitespace)
	setBool(&base.Normalization.FoldCase, o.FoldCase)
	setBool(&base.IgnoreWhitespace, o.IgnoreWhitespace)
	return base, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
