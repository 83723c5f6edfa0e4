package vocab

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// HGNCSymbolLoader derives the bare gene-symbol vocabulary from the HGNC
// release files: every approved symbol and alias becomes an active concept,
// withdrawn symbols become deprecated ones. Gene-centric vocabularies link
// into these concepts via HAS_SYMBOL annotations.
type HGNCSymbolLoader struct {
	fetch *Fetcher
	hgnc  *HGNCLoader
	log   *logger.Logger
}

func (l *HGNCSymbolLoader) Descriptor() Descriptor {
	return Descriptor{
		Prefix: terminology.PrefixHGNCSymbol,
		Name:   "HUGO Gene Nomenclature Committee Symbol",
		Annotations: []terminology.Prefix{
			terminology.PrefixHPO,
			terminology.PrefixORDO,
			terminology.PrefixNCIT,
			terminology.PrefixOMIM,
		},
		FilePaths: []string{
			"hgnc/symbol.txt",
			"hgnc/withdrawn.txt",
		},
		TimestampFile: "hgnc/.timestamp",
	}
}

// Download delegates to the HGNC loader; both vocabularies share the same
// release files.
func (l *HGNCSymbolLoader) Download(ctx context.Context) error {
	return l.hgnc.Download(ctx)
}

func (l *HGNCSymbolLoader) Load(ctx context.Context, sink Sink) error {
	d := l.Descriptor()
	if !l.fetch.FilesExist(d.FilePaths) {
		return apierr.FilesNotFound(fmt.Errorf("HGNC symbol files not found"))
	}

	symbolTable, err := ReadTable(l.fetch.Path(d.FilePaths[0]), TableOptions{Comma: '\t', Header: true})
	if err != nil {
		return err
	}
	withdrawnTable, err := ReadTable(l.fetch.Path(d.FilePaths[1]), TableOptions{Comma: '\t', Header: true})
	if err != nil {
		return err
	}

	active := make(map[string]struct{})
	for _, row := range symbolTable.Rows {
		if aliases := symbolTable.Field(row, "alias_symbol"); aliases != "" {
			for _, alias := range strings.Split(aliases, "|") {
				active[alias] = struct{}{}
			}
		}
		if symbol := symbolTable.Field(row, "symbol"); symbol != "" {
			active[symbol] = struct{}{}
		}
	}

	withdrawn := make(map[string]struct{})
	for _, row := range withdrawnTable.Rows {
		if withdrawnTable.Field(row, "STATUS") == "Entry Withdrawn" {
			continue
		}
		if symbol := withdrawnTable.Field(row, "WITHDRAWN_SYMBOL"); symbol != "" {
			withdrawn[symbol] = struct{}{}
			delete(active, symbol)
		}
	}

	graph := terminology.NewGraph()
	concepts := make([]terminology.Concept, 0, len(active)+len(withdrawn))
	for _, symbol := range sortedKeys(active) {
		concepts = append(concepts, terminology.Concept{
			Prefix:    terminology.PrefixHGNCSymbol,
			ConceptID: symbol,
			Label:     symbol,
			Status:    terminology.StatusActive,
		})
		graph.AddNode(symbol)
	}
	for _, symbol := range sortedKeys(withdrawn) {
		concepts = append(concepts, terminology.Concept{
			Prefix:    terminology.PrefixHGNCSymbol,
			ConceptID: symbol,
			Label:     symbol,
			Status:    terminology.StatusDeprecated,
		})
		graph.AddNode(symbol)
	}

	l.log.Info("HGNC symbols parsed", "active", len(active), "withdrawn", len(withdrawn))
	return sink(ctx, Payload{Concepts: concepts, Graph: graph})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
