package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stockwatch/internal/analysis"
	"stockwatch/internal/models"
)

// DataSource loads history and a current quote for one symbol.
type DataSource func(ctx context.Context, symbol string) ([]models.Candle, *models.Quote, error)

// SortField selects the column results are ordered by.
type SortField string

const (
	SortChange     SortField = "change"
	SortPrice      SortField = "price"
	SortVolume     SortField = "volume"
	SortConfidence SortField = "confidence"
)

// Criteria holds AND-combined filters. Nil bounds and an empty Action are ignored.
type Criteria struct {
	MinPrice  *float64
	MaxPrice  *float64
	MinChange *float64
	MaxChange *float64
	MinVolume *float64
	Action    analysis.Action
	RSIBelow  *float64
	RSIAbove  *float64
	SortBy    SortField
	Ascending bool
}

// Preset is a named set of criteria.
type Preset struct {
	Name     string
	Criteria Criteria
}

func ptr(v float64) *float64 { return &v }

// Presets returns the built-in screens.
func Presets() []Preset {
	return []Preset{
		{Name: "Top Gainers", Criteria: Criteria{MinChange: ptr(2), SortBy: SortChange}},
		{Name: "Top Losers", Criteria: Criteria{MaxChange: ptr(-2), SortBy: SortChange, Ascending: true}},
		{Name: "High Volume", Criteria: Criteria{MinVolume: ptr(5_000_000), SortBy: SortVolume}},
		{Name: "Breakout Stocks", Criteria: Criteria{MinChange: ptr(5), MinVolume: ptr(10_000_000), SortBy: SortChange}},
	}
}

// FindPreset looks a preset up by case-insensitive name.
func FindPreset(name string) (Preset, bool) {
	for _, p := range Presets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// ScreenerResult is the outcome for one symbol. Err is set when data could not
// be loaded; such results never pass.
type ScreenerResult struct {
	Symbol string  `json:"symbol"`
	Report *Report `json:"report,omitempty"`
	Passed bool    `json:"passed"`
	Err    error   `json:"-"`
}

// Screener analyzes many symbols concurrently.
type Screener struct {
	analyzer    *Analyzer
	source      DataSource
	concurrency int
}

// NewScreener creates a screener. Non-positive concurrency defaults to 4.
func NewScreener(analyzer *Analyzer, source DataSource, concurrency int) *Screener {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Screener{
		analyzer:    analyzer,
		source:      source,
		concurrency: concurrency,
	}
}

// Scan analyzes every symbol and returns all results, passed or not, sorted
// per the criteria. Passed results come first. Cancelling ctx stops dispatch
// and returns ctx.Err().
func (s *Screener) Scan(ctx context.Context, symbols []string, criteria Criteria) ([]ScreenerResult, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	resultChan := make(chan ScreenerResult, len(symbols))
	workChan := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workChan {
				resultChan <- s.scanSymbol(ctx, symbol, criteria)
			}
		}()
	}

	go func() {
		defer close(workChan)
		for _, symbol := range symbols {
			select {
			case <-ctx.Done():
				return
			case workChan <- symbol:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]ScreenerResult, 0, len(symbols))
	for result := range resultChan {
		results = append(results, result)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	SortResults(results, criteria.SortBy, criteria.Ascending)
	return results, nil
}

func (s *Screener) scanSymbol(ctx context.Context, symbol string, criteria Criteria) ScreenerResult {
	result := ScreenerResult{Symbol: symbol}

	candles, quote, err := s.source(ctx, symbol)
	if err != nil {
		result.Err = fmt.Errorf("failed to load %s: %w", symbol, err)
		return result
	}

	report := s.analyzer.Analyze(symbol, candles, quote)
	result.Report = &report
	result.Passed = criteria.Match(report)
	return result
}

// Match reports whether the report satisfies every configured filter.
func (c Criteria) Match(r Report) bool {
	q := r.Quote
	if q == nil {
		return c.MinPrice == nil && c.MaxPrice == nil && c.MinChange == nil &&
			c.MaxChange == nil && c.MinVolume == nil && c.matchAnalysis(r)
	}
	if c.MinPrice != nil && q.Price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && q.Price > *c.MaxPrice {
		return false
	}
	if c.MinChange != nil && q.ChangePercent < *c.MinChange {
		return false
	}
	if c.MaxChange != nil && q.ChangePercent > *c.MaxChange {
		return false
	}
	if c.MinVolume != nil && q.Volume < *c.MinVolume {
		return false
	}
	return c.matchAnalysis(r)
}

func (c Criteria) matchAnalysis(r Report) bool {
	if c.Action != "" && r.Recommendation.Action != c.Action {
		return false
	}
	if c.RSIBelow == nil && c.RSIAbove == nil {
		return true
	}
	rsi, ok := r.Indicators.RSI.Last()
	if !ok {
		return false
	}
	if c.RSIBelow != nil && rsi >= *c.RSIBelow {
		return false
	}
	if c.RSIAbove != nil && rsi <= *c.RSIAbove {
		return false
	}
	return true
}

// SortResults orders passed results before failed ones, then by field. Ties
// keep symbol order.
func SortResults(results []ScreenerResult, field SortField, ascending bool) {
	if field == "" {
		field = SortChange
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Passed != b.Passed {
			return a.Passed
		}
		va, vb := sortValue(a, field), sortValue(b, field)
		if va == vb {
			return a.Symbol < b.Symbol
		}
		if ascending {
			return va < vb
		}
		return va > vb
	})
}

func sortValue(r ScreenerResult, field SortField) float64 {
	if r.Report == nil {
		return 0
	}
	if field == SortConfidence {
		return float64(r.Report.Recommendation.Confidence)
	}
	q := r.Report.Quote
	if q == nil {
		return 0
	}
	switch field {
	case SortPrice:
		return q.Price
	case SortVolume:
		return q.Volume
	default:
		return q.ChangePercent
	}
}
