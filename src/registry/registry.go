// Package registry holds the static catalogue of ETF feeds the tracker knows about.
package registry

import (
	"fmt"
	"strings"
)

// Entry describes where an ETF's holdings feed lives and how to parse it.
type Entry struct {
	Code      string `mapstructure:"code" json:"code"`
	Name      string `mapstructure:"name" json:"name"`
	URL       string `mapstructure:"url" json:"url"`
	HeaderRow int    `mapstructure:"headerRow" json:"headerRow"`
}

// Registry is an immutable, ordered set of entries keyed by ETF code.
type Registry struct {
	order   []string
	entries map[string]Entry
}

// New builds a registry preserving the given order.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(entries)),
		entries: make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		e.Code = strings.TrimSpace(e.Code)
		if e.Code == "" {
			return nil, fmt.Errorf("registry entry with empty code")
		}
		if e.URL == "" {
			return nil, fmt.Errorf("registry entry %s has no url", e.Code)
		}
		if e.HeaderRow < 0 {
			return nil, fmt.Errorf("registry entry %s has negative header row %d", e.Code, e.HeaderRow)
		}
		if _, dup := r.entries[e.Code]; dup {
			return nil, fmt.Errorf("duplicate registry entry %s", e.Code)
		}
		r.order = append(r.order, e.Code)
		r.entries[e.Code] = e
	}
	return r, nil
}

// Lookup returns the entry registered under code.
func (r *Registry) Lookup(code string) (Entry, bool) {
	e, ok := r.entries[code]
	return e, ok
}

// Codes returns the registered codes in registry order.
func (r *Registry) Codes() []string {
	codes := make([]string, len(r.order))
	copy(codes, r.order)
	return codes
}

// Entries returns all entries in registry order.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.order))
	for _, code := range r.order {
		entries = append(entries, r.entries[code])
	}
	return entries
}

func (r *Registry) Len() int { return len(r.order) }

// DefaultEntries are the iShares emerging-markets bond funds tracked out of the box.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Code:      "CEMBI",
			Name:      "iShares Emerging Markets Corporate Bond ETF",
			URL:       "https://www.ishares.com/us/products/239525/ishares-emerging-markets-corporate-bond-etf/1467271812596.ajax?fileType=csv&fileName=CEMB_holdings&dataType=fund",
			HeaderRow: 9,
		},
		{
			Code:      "EMBI",
			Name:      "iShares J.P. Morgan USD Emerging Markets Bond ETF",
			URL:       "https://www.ishares.com/us/products/239572/ishares-jp-morgan-usd-emerging-markets-bond-etf/1467271812596.ajax?fileType=csv&fileName=EMB_holdings&dataType=fund",
			HeaderRow: 9,
		},
		{
			Code:      "GBI",
			Name:      "iShares Emerging Markets Local Currency Bond ETF",
			URL:       "https://www.ishares.com/us/products/239528/ishares-emerging-markets-local-currency-bond-etf/1467271812596.ajax?fileType=csv&fileName=LEMB_holdings&dataType=fund",
			HeaderRow: 9,
		},
		{
			Code:      "EMHY",
			Name:      "iShares Emerging Markets High Yield Bond ETF",
			URL:       "https://www.ishares.com/us/products/239527/ishares-emerging-markets-high-yield-bond-etf/1467271812596.ajax?fileType=csv&fileName=EMHY_holdings&dataType=fund",
			HeaderRow: 9,
		},
	}
}

// Default returns the registry of DefaultEntries.
func Default() *Registry {
	r, err := New(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return r
}
