// Package annot loads cross-vocabulary annotation mappings. Each loader
// covers one unordered prefix pair and is a pure transform from the mapping
// files on disk to annotation edges; persistence and the loaded/overwrite
// bookkeeping belong to the ingest orchestrator.
package annot

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

// Descriptor is the static metadata of one annotation loader. Prefix1 and
// Prefix2 are the pair in source -> target direction of the emitted edges.
type Descriptor struct {
	Name      string
	Prefix1   terminology.Prefix
	Prefix2   terminology.Prefix
	FilePaths []string
}

// Loader downloads and parses one annotation mapping.
type Loader interface {
	Descriptor() Descriptor
	// Download fetches the mapping files. It returns immediately when all
	// expected files already exist.
	Download(ctx context.Context) error
	Load(ctx context.Context) ([]terminology.Annotation, error)
}

// PairKey identifies an unordered prefix pair, lexicographically sorted so
// (hpo, ordo) and (ordo, hpo) resolve to the same loader.
type PairKey struct {
	First  terminology.Prefix
	Second terminology.Prefix
}

func NewPairKey(p1, p2 terminology.Prefix) PairKey {
	if p2 < p1 {
		p1, p2 = p2, p1
	}
	return PairKey{First: p1, Second: p2}
}

// Registry holds the loader for every supported annotation pair.
type Registry struct {
	fetch   *vocab.Fetcher
	loaders map[PairKey]Loader
}

func NewRegistry(fetch *vocab.Fetcher, log *logger.Logger) (*Registry, error) {
	if fetch == nil {
		return nil, fmt.Errorf("annot: fetcher required")
	}
	if log == nil {
		return nil, fmt.Errorf("annot: logger required")
	}

	all := []Loader{
		&HOOMLoader{fetch: fetch, log: log.With("loader", "hpo_ordo")},
		&GeneHPOLoader{fetch: fetch, log: log.With("loader", "gene_hpo")},
		&CTV3SnomedLoader{fetch: fetch, log: log.With("loader", "ctv3_snomed")},
		&GeneNCITLoader{fetch: fetch, log: log.With("loader", "gene_ncit")},
		&GeneOMIMLoader{fetch: fetch, log: log.With("loader", "gene_omim")},
		&GeneORDOLoader{fetch: fetch, log: log.With("loader", "gene_ordo")},
		&OMIMORDOLoader{fetch: fetch, log: log.With("loader", "omim_ordo")},
		&ORDOSnomedLoader{fetch: fetch, log: log.With("loader", "ordo_snomed")},
	}

	loaders := make(map[PairKey]Loader, len(all))
	for _, l := range all {
		d := l.Descriptor()
		key := NewPairKey(d.Prefix1, d.Prefix2)
		if _, dup := loaders[key]; dup {
			return nil, fmt.Errorf("annot: duplicate loader for pair %s/%s", key.First, key.Second)
		}
		loaders[key] = l
	}
	return &Registry{fetch: fetch, loaders: loaders}, nil
}

// Get resolves the loader for an unordered prefix pair.
func (r *Registry) Get(p1, p2 terminology.Prefix) (Loader, error) {
	loader, ok := r.loaders[NewPairKey(p1, p2)]
	if !ok {
		return nil, apierr.Validation(fmt.Errorf("no annotation loader for pair %q/%q", p1, p2))
	}
	return loader, nil
}

// Pairs lists the registered annotation pairs in sorted order.
func (r *Registry) Pairs() []PairKey {
	out := make([]PairKey, 0, len(r.loaders))
	for key := range r.loaders {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].First != out[j].First {
			return out[i].First < out[j].First
		}
		return out[i].Second < out[j].Second
	})
	return out
}

// DeleteFiles removes the downloaded mapping files for a pair. Missing
// files are ignored.
func (r *Registry) DeleteFiles(p1, p2 terminology.Prefix) error {
	loader, err := r.Get(p1, p2)
	if err != nil {
		return err
	}
	for _, p := range loader.Descriptor().FilePaths {
		r.fetch.Remove(p)
	}
	return nil
}
