package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.csv")
	require.NoError(t, os.WriteFile(path, []byte("city, pm25\nChicago,12.3\nTampa, 7\n"), 0o644))

	tbl, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "pm25"}, tbl.Header)
	assert.Equal(t, [][]string{{"Chicago", "12.3"}, {"Tampa", "7"}}, tbl.Rows)
	assert.Equal(t, 1, tbl.Index("pm25"))
	assert.Equal(t, -1, tbl.Index("PM25"))
}

func TestReadTableWith_Charset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.csv")
	require.NoError(t, os.WriteFile(path, []byte("FACILITY NAME\nSe\xf1or Chemicals\n"), 0o644))

	tbl, err := ReadTableWith(context.Background(), path, TableOptions{Charset: "latin1"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Señor Chemicals"}}, tbl.Rows)
}

func TestReadTable_EmptyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	tbl, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, tbl.Header)
	assert.Empty(t, tbl.Rows)
}

func TestReadTable_Missing(t *testing.T) {
	_, err := ReadTable(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadTable_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"city ", "pm25"}, {"Chicago", " 12.3"}},
	})

	tbl, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "pm25"}, tbl.Header)
	assert.Equal(t, [][]string{{"Chicago", "12.3"}}, tbl.Rows)
}

func TestReadTable_MissingXLSX(t *testing.T) {
	_, err := ReadTable(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCell(t *testing.T) {
	row := []string{"a", "b"}
	assert.Equal(t, "b", Cell(row, 1))
	assert.Equal(t, "", Cell(row, 2))
	assert.Equal(t, "", Cell(row, -1))
}
