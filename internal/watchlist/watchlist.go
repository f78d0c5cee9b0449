// Package watchlist manages named symbol lists: the embedded defaults, and
// YAML import and export.
package watchlist

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"stockwatch/internal/store"
)

// DefaultList is the list used when none is named.
const DefaultList = "default"

//go:embed defaults.yaml
var defaultsYAML []byte

// Stock describes a listed company.
type Stock struct {
	Code   string `yaml:"code" json:"code"`
	Name   string `yaml:"name" json:"name"`
	Sector string `yaml:"sector,omitempty" json:"sector,omitempty"`
}

// File is the YAML document read by Import and written by Export.
type File struct {
	Watchlists map[string][]string `yaml:"watchlists"`
	Stocks     []Stock             `yaml:"stocks,omitempty"`
}

var (
	defaultsOnce sync.Once
	defaults     File
	defaultsErr  error
	directory    map[string]Stock
)

// Defaults returns the embedded default watchlists.
func Defaults() (File, error) {
	defaultsOnce.Do(func() {
		defaultsErr = yaml.Unmarshal(defaultsYAML, &defaults)
		directory = make(map[string]Stock, len(defaults.Stocks))
		for _, s := range defaults.Stocks {
			directory[s.Code] = s
		}
	})
	return defaults, defaultsErr
}

// Lookup returns the known company for a code.
func Lookup(code string) (Stock, bool) {
	if _, err := Defaults(); err != nil {
		return Stock{}, false
	}
	s, ok := directory[strings.ToUpper(code)]
	return s, ok
}

// DisplayName returns the company name for a code, or the code itself.
func DisplayName(code string) string {
	if s, ok := Lookup(code); ok {
		return s.Name
	}
	return code
}

// Seed loads the default watchlists into a store that has none. It returns the
// number of symbols added.
func Seed(ctx context.Context, st store.DataStore) (int, error) {
	existing, err := st.GetAllWatchlists(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	f, err := Defaults()
	if err != nil {
		return 0, fmt.Errorf("parsing default watchlists: %w", err)
	}
	return load(ctx, st, f)
}

// Import adds every list in a YAML document to the store. Symbols already
// present are kept. It returns the number of symbols processed.
func Import(ctx context.Context, st store.DataStore, r io.Reader) (int, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("decoding watchlists: %w", err)
	}
	return load(ctx, st, f)
}

// Export writes every stored list as a YAML document.
func Export(ctx context.Context, st store.DataStore, w io.Writer) error {
	lists, err := st.GetAllWatchlists(ctx)
	if err != nil {
		return err
	}

	f := File{Watchlists: lists}
	for _, symbols := range lists {
		for _, code := range symbols {
			if s, ok := Lookup(code); ok {
				f.Stocks = append(f.Stocks, s)
			}
		}
	}
	sort.Slice(f.Stocks, func(i, j int) bool { return f.Stocks[i].Code < f.Stocks[j].Code })
	f.Stocks = dedupe(f.Stocks)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding watchlists: %w", err)
	}
	return enc.Close()
}

func load(ctx context.Context, st store.DataStore, f File) (int, error) {
	names := make([]string, 0, len(f.Watchlists))
	for name := range f.Watchlists {
		names = append(names, name)
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		for _, symbol := range f.Watchlists[name] {
			if err := st.AddToWatchlist(ctx, symbol, name); err != nil {
				return n, fmt.Errorf("adding %s to %s: %w", symbol, name, err)
			}
			n++
		}
	}
	return n, nil
}

func dedupe(stocks []Stock) []Stock {
	out := stocks[:0]
	for i, s := range stocks {
		if i > 0 && s.Code == stocks[i-1].Code {
			continue
		}
		out = append(out, s)
	}
	return out
}
