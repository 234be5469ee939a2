// Package aggregate computes cross-record analytics over normalized
// fiscal records: change-over-period deltas, first-seen grouping,
// numeric ranking, and fault-tolerant multi-entity fan-out.
package aggregate

import (
	"context"
	"sort"

	"github.com/openfiscal/fiscalgate/internal/fiscal"
)

// DebtDelta summarizes the change over a debt history that is sorted
// descending by date: element 0 is the latest record, the last element
// the oldest.
type DebtDelta struct {
	PeriodDays     int     `json:"periodDays"`
	ChangeInPeriod *string `json:"changeInPeriod"`
	DailyAvgChange *string `json:"dailyAvgChange"`
}

// ComputeDebtDelta returns the delta between the latest and oldest total
// debt values, formatted in billions, and the per-day average over the
// period. With one record or fewer, or non-numeric endpoints, the
// formatted values are nil.
func ComputeDebtDelta(history []fiscal.DebtRecord) DebtDelta {
	d := DebtDelta{PeriodDays: len(history)}
	if len(history) <= 1 {
		return d
	}

	latest, okL := fiscal.ParseAmount(history[0].TotalDebt)
	oldest, okO := fiscal.ParseAmount(history[len(history)-1].TotalDebt)
	if !okL || !okO {
		return d
	}

	delta := latest - oldest
	d.ChangeInPeriod = fiscal.FormatBillions(delta)
	d.DailyAvgChange = fiscal.FormatBillionsPerDay(delta / float64(len(history)-1))
	return d
}

// GroupedView is an ordered mapping from a composite key to the first
// record encountered for that key. Over a sequence pre-sorted descending
// by date this yields the latest record per group. The order dependence
// is the contract, not an accident: callers must not re-sort first.
type GroupedView[T any] struct {
	keys   []string
	values map[string]T
}

// GroupFirstSeen folds records into a GroupedView, keeping only the
// first record seen per key and discarding later duplicates. Records
// whose keyFn returns "" are skipped.
func GroupFirstSeen[T any](records []T, keyFn func(T) string) *GroupedView[T] {
	g := &GroupedView[T]{values: make(map[string]T)}
	for _, r := range records {
		k := keyFn(r)
		if k == "" {
			continue
		}
		if _, seen := g.values[k]; seen {
			continue
		}
		g.keys = append(g.keys, k)
		g.values[k] = r
	}
	return g
}

// Keys returns the composite keys in first-seen order.
func (g *GroupedView[T]) Keys() []string { return g.keys }

// Get returns the record kept for the given key.
func (g *GroupedView[T]) Get(key string) (T, bool) {
	v, ok := g.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (g *GroupedView[T]) Len() int { return len(g.keys) }

// Records returns the kept records in first-seen order.
func (g *GroupedView[T]) Records() []T {
	out := make([]T, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.values[k])
	}
	return out
}

// Strength notes attached to ranked exchange rates. Comparison against
// 1 is exact on the parsed value, not an epsilon comparison.
const (
	NoteStronger = "stronger than USD"
	NotePegged   = "pegged to USD"
	NoteWeaker   = "weaker than USD"
)

// RateEntry is one entity/rate pair submitted for ranking.
type RateEntry struct {
	Country  string
	Currency string
	Date     *string
	Rate     float64
}

// Ranked is one ranked comparison row.
type Ranked struct {
	Rank     int     `json:"rank"`
	Country  string  `json:"country"`
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
	Date     *string `json:"date"`
	Note     string  `json:"note"`
}

// RankByRate sorts entries ascending by rate, assigns 1-based ranks, and
// attaches the strength note. The sort is stable so equal rates keep
// their input order.
func RankByRate(entries []RateEntry) []Ranked {
	sorted := make([]RateEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rate < sorted[j].Rate
	})

	out := make([]Ranked, 0, len(sorted))
	for i, e := range sorted {
		note := NoteWeaker
		switch {
		case e.Rate < 1:
			note = NoteStronger
		case e.Rate == 1:
			note = NotePegged
		}
		out = append(out, Ranked{
			Rank:     i + 1,
			Country:  e.Country,
			Currency: e.Currency,
			Rate:     e.Rate,
			Date:     e.Date,
			Note:     note,
		})
	}
	return out
}

// EntityResult is the explicit outcome of one fan-out task. A failed
// fetch yields Found=false with no records rather than an error.
type EntityResult[T any] struct {
	Entity  string `json:"entity"`
	Found   bool   `json:"found"`
	Records []T    `json:"records"`
}

// FanOut issues fetch once per entity concurrently and joins all
// outcomes, preserving the input entity order. Each task is individually
// fault-tolerant: a failing or empty fetch marks that entity not found
// and never aborts the batch.
func FanOut[T any](ctx context.Context, entities []string, fetch func(ctx context.Context, entity string) ([]T, error)) []EntityResult[T] {
	results := make([]EntityResult[T], len(entities))

	done := make(chan struct{})
	for i, entity := range entities {
		go func(i int, entity string) {
			defer func() { done <- struct{}{} }()
			records, err := fetch(ctx, entity)
			if err != nil || len(records) == 0 {
				results[i] = EntityResult[T]{Entity: entity, Found: false, Records: []T{}}
				return
			}
			results[i] = EntityResult[T]{Entity: entity, Found: true, Records: records}
		}(i, entity)
	}
	for range entities {
		<-done
	}
	return results
}

// CountFound returns how many results carry at least one record.
func CountFound[T any](results []EntityResult[T]) int {
	n := 0
	for _, r := range results {
		if r.Found {
			n++
		}
	}
	return n
}
