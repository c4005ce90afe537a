//go:build integration

package reftable_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"biorempp/internal/reftable"
	"biorempp/pkg/platform/sentinel"
	"biorempp/pkg/testutil/containers"
)

type PostgresSourceSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
}

func TestPostgresSourceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSourceSuite))
}

func (s *PostgresSourceSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())

	s.postgres.ExecSQL(s.T(), `DROP TABLE IF EXISTS kegg_reference`)
	s.postgres.ExecSQL(s.T(), `CREATE TABLE kegg_reference (ko TEXT, pathname TEXT, genesymbol TEXT)`)
	s.postgres.ExecSQL(s.T(), `INSERT INTO kegg_reference VALUES
		('K00001', 'Toluene degradation', 'adhE'),
		('K00161', 'Benzoate degradation', 'pdhA')`)
}

func (s *PostgresSourceSuite) TestFetch() {
	src, err := reftable.NewPostgresSource(s.postgres.DSN,
		"SELECT ko, pathname, genesymbol FROM kegg_reference ORDER BY ko")
	s.Require().NoError(err)

	table, err := src.Fetch(context.Background())
	s.Require().NoError(err)

	s.Equal([]string{"ko", "pathname", "genesymbol"}, table.Columns())
	s.Require().Equal(2, table.NumRows())
	pathname, _ := table.Cell(0, "pathname")
	s.Equal("Toluene degradation", pathname)
}

func (s *PostgresSourceSuite) TestFetchUndefinedTable() {
	src, err := reftable.NewPostgresSource(s.postgres.DSN, "SELECT * FROM missing_reference")
	s.Require().NoError(err)

	_, err = src.Fetch(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSourceSuite) TestTableLoaderOverPostgres() {
	src, err := reftable.NewPostgresSource(s.postgres.DSN,
		"SELECT ko, pathname, genesymbol FROM kegg_reference")
	s.Require().NoError(err)

	loader := reftable.NewTableLoader(reftable.TableKEGG, src,
		[]string{"ko", "pathname", "genesymbol"}, reftable.JoinColumnKO)

	table, err := loader.Load(context.Background())
	s.Require().NoError(err)
	s.Equal(2, table.NumRows())
	s.True(loader.Loaded())
}
