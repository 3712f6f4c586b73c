package fetcher

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Company Name", "Website"},
			{"Acme Corp", "https://acme.example"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Acme Corp", "https://acme.example"}, rows[1])
}

func TestReadXLSX_SkipRows(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"Header"}, {"a"}, {"b"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, rows)
}

func TestReadXLSX_SheetByName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Companies": {{"Globex"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Companies"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Globex"}}, rows)

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.ErrorContains(t, err, "not found")
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	assert.ErrorContains(t, err, "out of range")
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	input := "name,site\n  Acme Corp , acme.example\n# skipped\nGlobex\n"
	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{Comment: '#', SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Acme Corp", "acme.example"}, {"Globex"}}, rows)
}

func TestReadCSV_Delimiter(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("a|b\n"), CSVOptions{Delimiter: '|'})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestNewXMLDecoder_Latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><loc>caf\xe9</loc>"
	var v struct {
		Value string `xml:",chardata"`
	}
	require.NoError(t, NewXMLDecoder(strings.NewReader(doc)).Decode(&v))
	assert.Equal(t, "café", v.Value)
}
