package vocab

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// Descriptor is the static metadata of one vocabulary loader.
type Descriptor struct {
	Prefix            terminology.Prefix
	Name              string
	Annotations       []terminology.Prefix
	SimilarityMethods []terminology.SimilarityMethod
	FilePaths         []string
	TimestampFile     string
}

// Payload is one parsed batch of vocabulary data, ready for persistence:
// the concepts, their internal relationship graph, and any cross-vocabulary
// annotations the release carries.
type Payload struct {
	Concepts    []terminology.Concept
	Graph       *terminology.Graph
	Annotations []terminology.Annotation
}

// Sink receives parsed payloads in load order. Loaders that process a
// release in several passes call it once per pass so the whole vocabulary
// never has to sit in memory at once.
type Sink func(ctx context.Context, payload Payload) error

// Loader downloads and parses one vocabulary. Parsing is a pure transform
// from the release files on disk to payloads; persistence belongs to the
// caller.
type Loader interface {
	Descriptor() Descriptor
	// Download fetches the release files. It returns immediately when all
	// expected files already exist.
	Download(ctx context.Context) error
	Load(ctx context.Context, sink Sink) error
}

// GeneSymbolGuard reports whether the gene-symbol vocabulary is loaded.
// Loaders that link into gene symbols call it before parsing and propagate
// its error (typically vocabulary_not_loaded).
type GeneSymbolGuard func(ctx context.Context) error

// Registry holds the loader for every supported vocabulary.
type Registry struct {
	fetch   *Fetcher
	loaders map[terminology.Prefix]Loader
}

func NewRegistry(fetch *Fetcher, guard GeneSymbolGuard, log *logger.Logger) (*Registry, error) {
	if fetch == nil {
		return nil, fmt.Errorf("vocab: fetcher required")
	}
	if log == nil {
		return nil, fmt.Errorf("vocab: logger required")
	}

	hgnc := &HGNCLoader{fetch: fetch, log: log.With("loader", "hgnc")}

	loaders := map[terminology.Prefix]Loader{
		terminology.PrefixHPO:        &HPOLoader{fetch: fetch, log: log.With("loader", "hpo")},
		terminology.PrefixORDO:       &ORDOLoader{fetch: fetch, log: log.With("loader", "ordo")},
		terminology.PrefixSNOMED:     &SnomedLoader{fetch: fetch, log: log.With("loader", "snomed")},
		terminology.PrefixNCIT:       &NCITLoader{fetch: fetch, log: log.With("loader", "ncit")},
		terminology.PrefixOMIM:       &OMIMLoader{fetch: fetch, log: log.With("loader", "omim")},
		terminology.PrefixHGNC:       hgnc,
		terminology.PrefixHGNCSymbol: &HGNCSymbolLoader{fetch: fetch, hgnc: hgnc, log: log.With("loader", "hgnc_symbol")},
		terminology.PrefixCTV3:       &CTV3Loader{fetch: fetch, log: log.With("loader", "ctv3")},
		terminology.PrefixEnsembl:    &EnsemblLoader{fetch: fetch, guard: guard, log: log.With("loader", "ensembl")},
		terminology.PrefixReactome:   &ReactomeLoader{fetch: fetch, log: log.With("loader", "reactome")},
	}

	return &Registry{fetch: fetch, loaders: loaders}, nil
}

// Get resolves the loader for a prefix.
func (r *Registry) Get(prefix terminology.Prefix) (Loader, error) {
	loader, ok := r.loaders[prefix]
	if !ok {
		return nil, apierr.Validation(fmt.Errorf("no vocabulary loader for prefix %q", prefix))
	}
	return loader, nil
}

// Prefixes lists the registered vocabularies in registry order.
func (r *Registry) Prefixes() []terminology.Prefix {
	out := make([]terminology.Prefix, 0, len(r.loaders))
	for _, p := range terminology.AllPrefixes() {
		if _, ok := r.loaders[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FilesExist reports whether every release file for a prefix is on disk.
func (r *Registry) FilesExist(prefix terminology.Prefix) (bool, error) {
	loader, err := r.Get(prefix)
	if err != nil {
		return false, err
	}
	return r.fetch.FilesExist(loader.Descriptor().FilePaths), nil
}

// DownloadTime reads the recorded download instant for a prefix; ok is
// false when no timestamp file exists.
func (r *Registry) DownloadTime(prefix terminology.Prefix) (time.Time, bool) {
	loader, err := r.Get(prefix)
	if err != nil {
		return time.Time{}, false
	}
	return r.fetch.ReadTimestamp(loader.Descriptor().TimestampFile)
}

// DeleteFiles removes the downloaded release files and the timestamp file
// for a prefix. Missing files are ignored.
func (r *Registry) DeleteFiles(prefix terminology.Prefix) error {
	loader, err := r.Get(prefix)
	if err != nil {
		return err
	}
	d := loader.Descriptor()
	for _, p := range d.FilePaths {
		r.fetch.Remove(p)
	}
	if d.TimestampFile != "" {
		r.fetch.Remove(d.TimestampFile)
	}
	return nil
}
