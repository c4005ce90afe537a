package reftable

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	dErrors "biorempp/pkg/domain-errors"
)

// Reference table names.
const (
	TableBioRemPP = "biorempp"
	TableKEGG     = "kegg"
	TableHadeg    = "hadeg"
	TableToxCSM   = "toxcsm"
)

// JoinColumnKO and JoinColumnCPD are the two keys tables join on: the gene
// orthology identifier and the compound identifier.
const (
	JoinColumnKO  = "ko"
	JoinColumnCPD = "cpd"
)

// TableSpec fixes a table's required schema and default backing file.
type TableSpec struct {
	Name        string
	Required    []string
	JoinColumn  string
	DefaultFile string
}

// Specs lists the four reference tables in pipeline order: the mandatory
// primary table first, then the optional enrichment tables.
func Specs() []TableSpec {
	return []TableSpec{
		{
			Name:        TableBioRemPP,
			Required:    []string{"ko", "genesymbol", "genename", "cpd", "compoundclass", "referenceag", "compoundname", "enzyme_activity"},
			JoinColumn:  JoinColumnKO,
			DefaultFile: "database_biorempp.csv",
		},
		{
			Name:        TableKEGG,
			Required:    []string{"ko", "pathname", "genesymbol"},
			JoinColumn:  JoinColumnKO,
			DefaultFile: "kegg_degradation_pathways.csv",
		},
		{
			Name:        TableHadeg,
			Required:    []string{"gene", "ko", "compound_pathway", "pathway"},
			JoinColumn:  JoinColumnKO,
			DefaultFile: "database_hadeg.csv",
		},
		{
			Name:        TableToxCSM,
			Required:    []string{"smiles", "cpd", "chemicalname"},
			JoinColumn:  JoinColumnCPD,
			DefaultFile: "database_toxcsm.csv",
		},
	}
}

// Catalog holds the configured loader for every reference table.
type Catalog struct {
	loaders map[string]*TableLoader
	order   []string
}

// CatalogConfig selects the backing source per table. Tables without an
// override read their default file from DataDir.
type CatalogConfig struct {
	DataDir   string
	Delimiter rune
	Overrides map[string]SourceConfig
}

// NewCatalog builds a loader per table spec.
func NewCatalog(ctx context.Context, cfg CatalogConfig, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{loaders: make(map[string]*TableLoader)}
	for _, spec := range Specs() {
		srcCfg, ok := cfg.Overrides[spec.Name]
		if !ok {
			srcCfg = SourceConfig{
				Driver:    DriverFile,
				Path:      filepath.Join(cfg.DataDir, spec.DefaultFile),
				Delimiter: cfg.Delimiter,
			}
		}
		src, err := OpenSource(ctx, srcCfg)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", spec.Name, err)
		}
		c.loaders[spec.Name] = NewTableLoader(spec.Name, src, spec.Required, spec.JoinColumn, WithLogger(logger))
		c.order = append(c.order, spec.Name)
	}
	return c, nil
}

// NewCatalogFromLoaders wires pre-built loaders, used by tests and by
// callers with custom sources.
func NewCatalogFromLoaders(loaders ...*TableLoader) *Catalog {
	c := &Catalog{loaders: make(map[string]*TableLoader, len(loaders))}
	for _, l := range loaders {
		c.loaders[l.Name()] = l
		c.order = append(c.order, l.Name())
	}
	return c
}

// Loader returns the loader for a table name.
func (c *Catalog) Loader(name string) (*TableLoader, error) {
	l, ok := c.loaders[name]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeTableNotFound, "unknown reference table %q", name)
	}
	return l, nil
}

// Names lists the configured tables in pipeline order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// WarmUp loads every table in parallel so the first request does not pay
// the load cost. A failing optional table surfaces here rather than mid
// pipeline.
func (c *Catalog) WarmUp(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range c.order {
		loader := c.loaders[name]
		g.Go(func() error {
			if _, err := loader.Load(ctx); err != nil {
				return fmt.Errorf("warm up %s: %w", loader.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// TableStats is an admin-surface snapshot of one loader.
type TableStats struct {
	Name       string `json:"name"`
	Source     string `json:"source"`
	JoinColumn string `json:"join_column"`
	Loaded     bool   `json:"loaded"`
	Rows       int    `json:"rows"`
}

// Stats snapshots every loader, sorted by table name.
func (c *Catalog) Stats() []TableStats {
	out := make([]TableStats, 0, len(c.loaders))
	for _, l := range c.loaders {
		out = append(out, TableStats{
			Name:       l.Name(),
			Source:     l.Source(),
			JoinColumn: l.JoinColumn(),
			Loaded:     l.Loaded(),
			Rows:       l.NumRows(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
