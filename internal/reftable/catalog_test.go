package reftable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "biorempp/pkg/domain-errors"
	"biorempp/pkg/platform/sentinel"
)

func TestNewCatalog_UnknownDriver(t *testing.T) {
	_, err := NewCatalog(context.Background(), CatalogConfig{
		DataDir: t.TempDir(),
		Overrides: map[string]SourceConfig{
			TableKEGG: {Driver: "ftp"},
		},
	}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "table kegg")
	assert.Contains(t, err.Error(), `"ftp"`)
}

func TestCatalog_LoaderUnknown(t *testing.T) {
	cat := NewCatalogFromLoaders()

	_, err := cat.Loader("metacyc")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTableNotFound))
}

func TestCatalog_WarmUpLoadsEveryTable(t *testing.T) {
	first := NewTableLoader("kegg", &stubSource{table: refTable(t)}, []string{"ko"}, JoinColumnKO)
	second := NewTableLoader("hadeg", &stubSource{table: refTable(t)}, []string{"ko"}, JoinColumnKO)
	cat := NewCatalogFromLoaders(first, second)

	require.NoError(t, cat.WarmUp(context.Background()))
	assert.True(t, first.Loaded())
	assert.True(t, second.Loaded())
}

func TestCatalog_WarmUpFailsFast(t *testing.T) {
	ok := NewTableLoader("kegg", &stubSource{table: refTable(t)}, []string{"ko"}, JoinColumnKO)
	broken := NewTableLoader("toxcsm", &stubSource{err: sentinel.ErrNotFound}, []string{"cpd"}, JoinColumnCPD)
	cat := NewCatalogFromLoaders(ok, broken)

	err := cat.WarmUp(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm up toxcsm")
}

func TestCatalog_StatsSortedByName(t *testing.T) {
	kegg := NewTableLoader("kegg", &stubSource{table: refTable(t)}, []string{"ko"}, JoinColumnKO)
	hadeg := NewTableLoader("hadeg", &stubSource{table: refTable(t)}, []string{"ko"}, JoinColumnKO)
	cat := NewCatalogFromLoaders(kegg, hadeg)

	_, err := kegg.Load(context.Background())
	require.NoError(t, err)

	stats := cat.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "hadeg", stats[0].Name)
	assert.Equal(t, "kegg", stats[1].Name)
	assert.False(t, stats[0].Loaded)
	assert.True(t, stats[1].Loaded)
	assert.Equal(t, 2, stats[1].Rows)
	assert.Equal(t, "stub", stats[1].Source)
}
