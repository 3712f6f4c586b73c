package pipeline

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/fetcher"
)

// ReadCompanyNames loads the company list from path. Text files hold one
// name per line; CSV and XLSX files use the first column, skipping a
// "Company Name" header. Names are trimmed and blanks ignored.
func ReadCompanyNames(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "input: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{Comment: '#'})
		if err != nil {
			return nil, eris.Wrapf(err, "input: read %s", path)
		}
		return firstColumn(rows), nil
	case ".xlsx":
		rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "input: read %s", path)
		}
		return firstColumn(rows), nil
	default:
		return readLines(path)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}
	return names, nil
}

func firstColumn(rows [][]string) []string {
	var names []string
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if i == 0 && strings.EqualFold(name, "company name") {
			continue
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
