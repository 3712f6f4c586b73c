package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/fetcher"
	"github.com/sells-group/enrich-cli/internal/model"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "test.db")
	c.Store.Table = "company_records"
	return c
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = sqliteConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	rec, err := st.GetCompany(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{}
	cfg.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestExportStored(t *testing.T) {
	cfg = sqliteConfig(t)
	ctx := context.Background()

	st, err := initStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	acme := model.NewCompanyRecord("Acme Corp", "https://acme.example")
	acme.FinancialInfo = model.NoFinancialInfo
	require.NoError(t, st.InsertCompany(ctx, acme))

	out := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, exportStored(ctx, st, out))

	rows, err := fetcher.ReadXLSX(out, fetcher.XLSXOptions{SheetName: "Companies"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, acme, model.FromValues(rows[1]))
}

func TestInitEnrich_NoLLMNoBrowser(t *testing.T) {
	cfg = sqliteConfig(t)
	cfg.Search.Key = "key"
	cfg.Search.CX = "cx"
	cfg.Search.BaseURL = "http://127.0.0.1:1"
	cfg.LLM.Provider = "none"
	cfg.Run.Concurrency = 2
	cfg.Ranker.MaxURLs = 15
	cfg.Extract.MaxPageChars = 100
	cfg.Extract.MaxTotalChars = 200

	env, err := initEnrich(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Pipeline)
	assert.Nil(t, env.Browser)
}

func TestInitEnrich_ValidationFails(t *testing.T) {
	cfg = sqliteConfig(t)
	cfg.LLM.Provider = "gemini"

	_, err := initEnrich(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.key is required")
}

func TestEnrichEnv_CloseNil(t *testing.T) {
	assert.NotPanics(t, func() { (&enrichEnv{}).Close() })
}

func TestWriteConfig_MasksSecrets(t *testing.T) {
	c := &config.Config{}
	c.Search.Key = "AIzaSECRET1234"
	c.Store.DatabaseURL = "postgres://user:pass@db/enrich"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, c))
	assert.NotContains(t, buf.String(), "AIzaSECRET")
	assert.NotContains(t, buf.String(), "user:pass")
	assert.Contains(t, buf.String(), "1234")
	assert.Contains(t, buf.String(), "database_url:")
}
