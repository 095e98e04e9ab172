package configstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lychee-technology/filterdetect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_OpenNode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectNodeSQL("filter_config", "$1"))).
		WithArgs(filterdetect.FiltersNodePath).
		WillReturnRows(sqlmock.NewRows([]string{"entry_name", "properties"}).
			AddRow("png_import", `{"Type":"graphic_png","Flags":["import"],"FormatName":"SVIPNG"}`))

	node, err := NewSQLStore(db, DriverPostgres, "filter_config").OpenNode(context.Background(), filterdetect.FiltersNodePath)
	require.NoError(t, err)
	ps, ok := node.ByName("png_import")
	require.True(t, ok)
	assert.Equal(t, []string{"import"}, filterdetect.PropertyStrings(ps, filterdetect.PropFlags))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_WrongTypedPropertyKeepsEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectNodeSQL("filter_config", "?"))).
		WithArgs(filterdetect.FiltersNodePath).
		WillReturnRows(sqlmock.NewRows([]string{"entry_name", "properties"}).
			AddRow("png_Import", `{"Type":"png","Flags":["import"]}`).
			AddRow("bmp_Import", `{"Type":"bmp","Flags":7,"UIName":null}`))

	node, err := NewSQLStore(db, DriverDuckDB, "filter_config").OpenNode(context.Background(), filterdetect.FiltersNodePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"png_Import", "bmp_Import"}, node.ElementNames())

	png, ok := node.ByName("png_Import")
	require.True(t, ok)
	assert.Equal(t, []string{"import"}, filterdetect.PropertyStrings(png, filterdetect.PropFlags))
	bmp, ok := node.ByName("bmp_Import")
	require.True(t, ok)
	_, ok = bmp.Property(filterdetect.PropFlags)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DuckDBPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectNodeSQL("filter_config", "?"))).
		WithArgs(filterdetect.TypesNodePath).
		WillReturnRows(sqlmock.NewRows([]string{"entry_name", "properties"}))

	_, err = NewSQLStore(db, DriverDuckDB, "filter_config").OpenNode(context.Background(), filterdetect.TypesNodePath)
	assert.True(t, filterdetect.IsNodeNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())

	s := NewSQLStore(db, DriverDuckDB, "t")
	assert.Equal(t, "?, ?, ?", s.placeholders(3))
	assert.Equal(t, "$1, $2, $3", NewSQLStore(db, DriverPostgres, "t").placeholders(3))
}

func TestSQLStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT entry_name, properties FROM filter_config`).
		WillReturnError(errors.New("server closed the connection"))

	_, err = NewSQLStore(db, DriverPostgres, "filter_config").OpenNode(context.Background(), filterdetect.TypesNodePath)
	assert.ErrorIs(t, err, filterdetect.ErrStoreUnavailable)
}

func TestSQLStore_Seed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	nodes := sampleNodes(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS filter_config")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, n := range nodes {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM filter_config WHERE node_path = $1")).
			WithArgs(n.Path).
			WillReturnResult(sqlmock.NewResult(0, 0))
		for _, name := range n.ElementNames() {
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO filter_config (node_path, entry_name, position, properties) VALUES ($1, $2, $3, $4)")).
				WithArgs(n.Path, name, sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))
		}
	}
	mock.ExpectCommit()

	require.NoError(t, NewSQLStore(db, DriverPostgres, "filter_config").Seed(context.Background(), nodes))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SeedRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS filter_config")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM filter_config")).
		WillReturnError(errors.New("relation is locked"))
	mock.ExpectRollback()

	err = NewSQLStore(db, DriverPostgres, "filter_config").Seed(context.Background(), sampleNodes(t))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQLStore_UnsupportedDriver(t *testing.T) {
	_, err := OpenSQLStore(context.Background(), "sqlite3", "file.db", "filter_config")
	var fe *filterdetect.FilterError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, filterdetect.ErrCodeUnsupportedDriver, fe.Code)
}

func TestSQLStore_DuckDBRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLStore(ctx, DriverDuckDB, "", "filter_config")
	require.NoError(t, err)
	defer store.Close()

	nodes := sampleNodes(t)
	require.NoError(t, store.Seed(ctx, nodes))
	for _, want := range nodes {
		got, err := store.OpenNode(ctx, want.Path)
		require.NoError(t, err)
		requireSameNode(t, want, got)
	}

	// reseeding replaces the node's rows
	replacement := NewNode(filterdetect.TypesNodePath)
	require.NoError(t, replacement.Add("graphic_webp", map[string]any{"Extensions": []string{"webp"}}))
	require.NoError(t, store.Seed(ctx, []*Node{replacement}))

	got, err := store.OpenNode(ctx, filterdetect.TypesNodePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"graphic_webp"}, got.ElementNames())
}
