package reftable

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "biorempp/pkg/domain-errors"
)

func writeRefFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileSource(t *testing.T) {
	path := writeRefFile(t, "kegg.csv", "ko;pathname;genesymbol\nK00001;Glycolysis;adhE\nK00002;Toluene degradation;dmpB\n")
	src := NewFileSource(path, 0)

	tbl, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.True(t, tbl.HasColumn("pathname"))
	assert.Equal(t, "file:"+path, src.String())
}

func TestFileSource_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kegg.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte("ko;pathname\nK00001;Glycolysis\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	tbl, err := NewFileSource(path, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.csv"), 0)
	l := NewTableLoader("kegg", src, []string{"ko"}, JoinColumnKO)

	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTableNotFound))
}

func TestFileSource_CustomDelimiter(t *testing.T) {
	path := writeRefFile(t, "tab.tsv", "ko\tpathname\nK00001\tGlycolysis\n")
	tbl, err := NewFileSource(path, '\t').Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
}

func TestOpenSource_UnknownDriver(t *testing.T) {
	_, err := OpenSource(context.Background(), SourceConfig{Driver: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reference table driver")
}

func TestNewCatalog_DefaultsToDataDirFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCatalog(context.Background(), CatalogConfig{DataDir: dir}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"biorempp", "kegg", "hadeg", "toxcsm"}, c.Names())
	l, err := c.Loader(TableKEGG)
	require.NoError(t, err)
	assert.Equal(t, "file:"+filepath.Join(dir, "kegg_degradation_pathways.csv"), l.Source())
}
