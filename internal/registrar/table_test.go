package registrar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedPriceTableRows(t *testing.T) {
	table := SeedPriceTable()
	require.NotEmpty(t, table.LastUpdated())

	rows := table.Rows("tapr.com")
	require.Len(t, rows, 3)
	assert.Equal(t, "Namecheap", rows[0].Registrar)
	assert.Equal(t, "Best Value", rows[0].Priority)
	assert.Equal(t, "$9.48", rows[0].Initial)
	assert.Equal(t, "$13.98", rows[0].Renewal)
	assert.Equal(t, "GoDaddy", rows[1].Registrar)
	assert.Equal(t, "Popular", rows[1].Priority)
	assert.Equal(t, "Porkbun", rows[2].Registrar)
	assert.Equal(t, "Developer Friendly", rows[2].Priority)
	assert.Contains(t, rows[2].AffiliateURL, "q=tapr.com")
}

func TestRowsFallBackForUnknownTLD(t *testing.T) {
	table, err := ParsePriceTable([]byte(`{"lastUpdated":"x","prices":{"namecheap":{"com":{"initial":"$1.00","renewal":""}}}}`))
	require.NoError(t, err)

	rows := table.Rows("tapr.museum")
	require.Len(t, rows, 3)
	assert.Equal(t, "$9.48", rows[0].Initial)
	assert.Equal(t, "$13.98", rows[0].Renewal)
	assert.Equal(t, "$1.99", rows[1].Initial)
	assert.Equal(t, "$19.99", rows[1].Renewal)
	assert.Equal(t, "$8.56", rows[2].Initial)
	assert.Equal(t, "$8.56", rows[2].Renewal)

	rows = table.Rows("tapr.com")
	assert.Equal(t, "$1.00", rows[0].Initial)
	assert.Equal(t, "$13.98", rows[0].Renewal)
}

func TestLoadPriceTableMissingFileUsesSeed(t *testing.T) {
	table, err := LoadPriceTable(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, SeedPriceTable().File(), table.File())
}

func TestLoadPriceTableRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadPriceTable(path)
	require.Error(t, err)
}

func TestPriceTableSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "domain-prices.json")
	table := SeedPriceTable()
	table.Set("Porkbun", ".XYZ", TLDPrice{Initial: "$3.00", Renewal: "$11.00"})
	table.SetLastUpdated("2025-02-01T00:00:00.000Z")

	require.NoError(t, table.Save(path))

	loaded, err := LoadPriceTable(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01T00:00:00.000Z", loaded.LastUpdated())
	price, ok := loaded.Get(Porkbun, "xyz")
	require.True(t, ok)
	assert.Equal(t, TLDPrice{Initial: "$3.00", Renewal: "$11.00"}, price)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileReturnsCopy(t *testing.T) {
	table := SeedPriceTable()
	file := table.File()
	file.Prices[Namecheap]["com"] = TLDPrice{Initial: "$0.01"}

	price, ok := table.Get(Namecheap, "com")
	require.True(t, ok)
	assert.Equal(t, "$9.48", price.Initial)
}

func TestReplaceSwapsContents(t *testing.T) {
	table := SeedPriceTable()
	other := SeedPriceTable()
	other.Set(Porkbun, "dev", TLDPrice{Initial: "$11.00", Renewal: "$12.00"})
	other.SetLastUpdated("2025-01-01T00:00:00.000Z")

	table.Replace(other)
	table.Replace(nil)

	price, ok := table.Get(Porkbun, "dev")
	require.True(t, ok)
	assert.Equal(t, "$11.00", price.Initial)
	assert.Equal(t, "2025-01-01T00:00:00.000Z", table.LastUpdated())
}

func TestAffiliateURL(t *testing.T) {
	assert.Equal(t,
		"https://www.namecheap.com/domains/registration/results/?domain=tapr.io&utm_source=domainnamesearch&utm_medium=affiliate",
		AffiliateURL("Namecheap", "tapr.io"))
	assert.Equal(t,
		"https://www.godaddy.com/domainsearch/find?domainToCheck=tapr.io&utm_source=domainnamesearch&utm_medium=affiliate",
		AffiliateURL(GoDaddy, "tapr.io"))
	assert.Equal(t,
		"https://porkbun.com/checkout/search?q=tapr.io&utm_source=domainnamesearch&utm_medium=affiliate",
		AffiliateURL(Porkbun, "tapr.io"))
	assert.Empty(t, AffiliateURL("unknown", "tapr.io"))
}
