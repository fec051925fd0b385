package registrar

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/namelens/domainsearch/internal/core"
)

//go:embed seed_prices.json
var seedPrices []byte

// TLDPrice is the initial and renewal price of one TLD at one registrar.
type TLDPrice struct {
	Initial string `json:"initial"`
	Renewal string `json:"renewal"`
}

// PriceFile is the persisted price table.
type PriceFile struct {
	LastUpdated string                         `json:"lastUpdated"`
	Prices      map[string]map[string]TLDPrice `json:"prices"`
}

type tableRow struct {
	registrar string
	priority  string
	fallback  TLDPrice
}

// tableRows fixes which registrars the table shows and in what order.
var tableRows = []tableRow{
	{registrar: Namecheap, priority: "Best Value", fallback: TLDPrice{Initial: "$9.48", Renewal: "$13.98"}},
	{registrar: GoDaddy, priority: "Popular", fallback: TLDPrice{Initial: "$1.99", Renewal: "$19.99"}},
	{registrar: Porkbun, priority: "Developer Friendly", fallback: TLDPrice{Initial: "$8.56", Renewal: "$8.56"}},
}

// DefaultRenewal returns the renewal price used when a registrar has no entry.
func DefaultRenewal(registrar string) string {
	for _, row := range tableRows {
		if row.registrar == normalizeKey(registrar) {
			return row.fallback.Renewal
		}
	}
	return ""
}

// PriceTable is the in-memory registrar price table. It is safe for
// concurrent use.
type PriceTable struct {
	mu   sync.RWMutex
	file PriceFile
}

// SeedPriceTable returns the table compiled into the binary.
func SeedPriceTable() *PriceTable {
	table, err := ParsePriceTable(seedPrices)
	if err != nil {
		panic(fmt.Sprintf("embedded price table is invalid: %v", err))
	}
	return table
}

// ParsePriceTable decodes a price file.
func ParsePriceTable(data []byte) (*PriceTable, error) {
	var file PriceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode price table: %w", err)
	}
	return newPriceTable(file), nil
}

// LoadPriceTable reads path, falling back to the embedded seed when the file
// does not exist yet.
func LoadPriceTable(path string) (*PriceTable, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return SeedPriceTable(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- configured price file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SeedPriceTable(), nil
		}
		return nil, fmt.Errorf("read price table: %w", err)
	}
	return ParsePriceTable(data)
}

func newPriceTable(file PriceFile) *PriceTable {
	normalized := PriceFile{LastUpdated: file.LastUpdated, Prices: map[string]map[string]TLDPrice{}}
	for registrar, tlds := range file.Prices {
		key := normalizeKey(registrar)
		if normalized.Prices[key] == nil {
			normalized.Prices[key] = map[string]TLDPrice{}
		}
		for tld, price := range tlds {
			normalized.Prices[key][strings.TrimPrefix(normalizeKey(tld), ".")] = price
		}
	}
	return &PriceTable{file: normalized}
}

// Get returns the stored price for registrar and tld.
func (t *PriceTable) Get(registrar, tld string) (TLDPrice, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	price, ok := t.file.Prices[normalizeKey(registrar)][strings.TrimPrefix(normalizeKey(tld), ".")]
	return price, ok
}

// Set stores a price for registrar and tld.
func (t *PriceTable) Set(registrar, tld string, price TLDPrice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := normalizeKey(registrar)
	if t.file.Prices == nil {
		t.file.Prices = map[string]map[string]TLDPrice{}
	}
	if t.file.Prices[key] == nil {
		t.file.Prices[key] = map[string]TLDPrice{}
	}
	t.file.Prices[key][strings.TrimPrefix(normalizeKey(tld), ".")] = price
}

// Replace swaps in the contents of other, e.g. after a config reload.
func (t *PriceTable) Replace(other *PriceTable) {
	if other == nil || other == t {
		return
	}
	file := other.File()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.file = file
}

// LastUpdated returns the table's refresh stamp.
func (t *PriceTable) LastUpdated() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.file.LastUpdated
}

// SetLastUpdated stamps the table.
func (t *PriceTable) SetLastUpdated(stamp string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.file.LastUpdated = stamp
}

// Rows returns one offer per table registrar for domain. Missing entries fall
// back to fixed defaults, so the result always has three rows.
func (t *PriceTable) Rows(domain string) []core.RegistrarPriceRow {
	tld := core.TLDOf(domain)
	if tld == "" {
		tld = "com"
	}

	rows := make([]core.RegistrarPriceRow, 0, len(tableRows))
	for _, spec := range tableRows {
		price, ok := t.Get(spec.registrar, tld)
		if !ok {
			price = TLDPrice{}
		}
		if price.Initial == "" {
			price.Initial = spec.fallback.Initial
		}
		if price.Renewal == "" {
			price.Renewal = spec.fallback.Renewal
		}
		rows = append(rows, core.RegistrarPriceRow{
			Registrar:    DisplayName(spec.registrar),
			Initial:      price.Initial,
			Renewal:      price.Renewal,
			Priority:     spec.priority,
			AffiliateURL: AffiliateURL(spec.registrar, domain),
		})
	}
	return rows
}

// File returns a deep copy of the table contents.
func (t *PriceTable) File() PriceFile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := PriceFile{LastUpdated: t.file.LastUpdated, Prices: make(map[string]map[string]TLDPrice, len(t.file.Prices))}
	for registrar, tlds := range t.file.Prices {
		copied := make(map[string]TLDPrice, len(tlds))
		for tld, price := range tlds {
			copied[tld] = price
		}
		out.Prices[registrar] = copied
	}
	return out
}

// Save writes the table to path via a temp file and rename.
func (t *PriceTable) Save(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("price table path is required")
	}

	data, err := json.MarshalIndent(t.File(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode price table: %w", err)
	}

	dir := filepath.Dir(path)
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create price table directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".domain-prices-*.json")
	if err != nil {
		return fmt.Errorf("create temp price table: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write price table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write price table: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace price table: %w", err)
	}
	return nil
}
