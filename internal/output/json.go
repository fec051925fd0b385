package output

import (
	"encoding/json"

	"github.com/namelens/domainsearch/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatSearch renders a snapshot as JSON.
func (f *JSONFormatter) FormatSearch(snapshot *core.SearchSnapshot) (string, error) {
	if snapshot == nil {
		return "", nil
	}
	return f.marshal(snapshot)
}

// FormatPrices renders a price view as JSON.
func (f *JSONFormatter) FormatPrices(view *PriceView) (string, error) {
	if view == nil {
		return "", nil
	}
	return f.marshal(view)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
