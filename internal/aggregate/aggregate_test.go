package aggregate

import (
	"context"
	"fmt"
	"testing"

	"github.com/openfiscal/fiscalgate/internal/fiscal"
)

func strp(s string) *string { return &s }

func debtRec(date, total string) fiscal.DebtRecord {
	return fiscal.DebtRecord{Date: strp(date), TotalDebt: strp(total)}
}

func TestComputeDebtDelta(t *testing.T) {
	// History is sorted descending by date: latest first.
	history := []fiscal.DebtRecord{
		debtRec("2024-06-01", "34510000000000"),
		debtRec("2024-05-31", "34505000000000"),
		debtRec("2024-05-30", "34500000000000"),
	}

	d := ComputeDebtDelta(history)
	if d.PeriodDays != 3 {
		t.Errorf("PeriodDays = %d, want 3", d.PeriodDays)
	}
	if d.ChangeInPeriod == nil || *d.ChangeInPeriod != "$10.00 billion" {
		t.Errorf("ChangeInPeriod = %v, want $10.00 billion", d.ChangeInPeriod)
	}
	if d.DailyAvgChange == nil || *d.DailyAvgChange != "$5.00 billion/day" {
		t.Errorf("DailyAvgChange = %v, want $5.00 billion/day", d.DailyAvgChange)
	}
}

func TestComputeDebtDeltaTwoRecords(t *testing.T) {
	// For a 2-record period the daily average equals the full delta.
	history := []fiscal.DebtRecord{
		debtRec("2024-06-01", "34510000000000"),
		debtRec("2024-05-31", "34500000000000"),
	}
	d := ComputeDebtDelta(history)
	if d.ChangeInPeriod == nil || *d.ChangeInPeriod != "$10.00 billion" {
		t.Errorf("ChangeInPeriod = %v", d.ChangeInPeriod)
	}
	if d.DailyAvgChange == nil || *d.DailyAvgChange != "$10.00 billion/day" {
		t.Errorf("DailyAvgChange = %v", d.DailyAvgChange)
	}
}

func TestComputeDebtDeltaShortHistory(t *testing.T) {
	// One record or fewer: no delta, no division by zero.
	for _, history := range [][]fiscal.DebtRecord{
		nil,
		{debtRec("2024-06-01", "34510000000000")},
	} {
		d := ComputeDebtDelta(history)
		if d.ChangeInPeriod != nil {
			t.Errorf("ChangeInPeriod should be nil for %d records", len(history))
		}
		if d.DailyAvgChange != nil {
			t.Errorf("DailyAvgChange should be nil for %d records", len(history))
		}
	}
}

func TestComputeDebtDeltaNonNumericEndpoint(t *testing.T) {
	history := []fiscal.DebtRecord{
		debtRec("2024-06-01", "34510000000000"),
		{Date: strp("2024-05-31")}, // missing total
	}
	d := ComputeDebtDelta(history)
	if d.ChangeInPeriod != nil || d.DailyAvgChange != nil {
		t.Error("missing endpoint value should yield nil deltas, not an error string")
	}
}

func TestGroupFirstSeen(t *testing.T) {
	records := []fiscal.ExchangeRecord{
		{Country: strp("Japan"), Currency: strp("Yen"), Date: strp("2024-06-30")},
		{Country: strp("Canada"), Currency: strp("Dollar"), Date: strp("2024-06-30")},
		{Country: strp("Japan"), Currency: strp("Yen"), Date: strp("2024-03-31")}, // older duplicate
		{Country: strp("Japan"), Currency: strp("Yen"), Date: strp("2023-12-31")},
	}

	g := GroupFirstSeen(records, func(r fiscal.ExchangeRecord) string {
		return *r.Country + "+" + *r.Currency
	})

	if g.Len() != 2 {
		t.Fatalf("expected 2 groups, got %d", g.Len())
	}
	wantKeys := []string{"Japan+Yen", "Canada+Dollar"}
	for i, k := range g.Keys() {
		if k != wantKeys[i] {
			t.Errorf("key[%d] = %q, want %q", i, k, wantKeys[i])
		}
	}

	// First-seen wins: the 2024-06-30 Japan record is kept.
	kept, ok := g.Get("Japan+Yen")
	if !ok {
		t.Fatal("Japan+Yen missing")
	}
	if *kept.Date != "2024-06-30" {
		t.Errorf("kept date = %s, want 2024-06-30 (first seen)", *kept.Date)
	}
}

func TestGroupFirstSeenSkipsEmptyKeys(t *testing.T) {
	records := []fiscal.ExchangeRecord{
		{Country: nil, Currency: strp("Yen")},
		{Country: strp("Japan"), Currency: strp("Yen")},
	}
	g := GroupFirstSeen(records, func(r fiscal.ExchangeRecord) string {
		if r.Country == nil || r.Currency == nil {
			return ""
		}
		return *r.Country + "+" + *r.Currency
	})
	if g.Len() != 1 {
		t.Errorf("expected 1 group, got %d", g.Len())
	}
}

func TestRankByRate(t *testing.T) {
	entries := []RateEntry{
		{Country: "Japan", Currency: "Yen", Rate: 157.3},
		{Country: "United Kingdom", Currency: "Pound", Rate: 0.79},
		{Country: "Panama", Currency: "Balboa", Rate: 1.0},
		{Country: "Canada", Currency: "Dollar", Rate: 1.37},
	}

	ranked := RankByRate(entries)
	if len(ranked) != 4 {
		t.Fatalf("expected 4 ranked entries, got %d", len(ranked))
	}

	tests := []struct {
		rank    int
		country string
		note    string
	}{
		{1, "United Kingdom", NoteStronger},
		{2, "Panama", NotePegged},
		{3, "Canada", NoteWeaker},
		{4, "Japan", NoteWeaker},
	}
	for i, tt := range tests {
		got := ranked[i]
		if got.Rank != tt.rank || got.Country != tt.country || got.Note != tt.note {
			t.Errorf("ranked[%d] = {%d %s %q}, want {%d %s %q}",
				i, got.Rank, got.Country, got.Note, tt.rank, tt.country, tt.note)
		}
	}
}

func TestRankByRatePeggedIsExact(t *testing.T) {
	// Exactly 1.0 is pegged; values marginally off are not.
	ranked := RankByRate([]RateEntry{
		{Country: "A", Rate: 1.0},
		{Country: "B", Rate: 0.9999999},
		{Country: "C", Rate: 1.0000001},
	})
	notes := map[string]string{}
	for _, r := range ranked {
		notes[r.Country] = r.Note
	}
	if notes["A"] != NotePegged {
		t.Errorf("rate 1.0 should be pegged, got %q", notes["A"])
	}
	if notes["B"] != NoteStronger {
		t.Errorf("rate just below 1 should be stronger, got %q", notes["B"])
	}
	if notes["C"] != NoteWeaker {
		t.Errorf("rate just above 1 should be weaker, got %q", notes["C"])
	}
}

func TestRankByRateStable(t *testing.T) {
	ranked := RankByRate([]RateEntry{
		{Country: "First", Rate: 2.0},
		{Country: "Second", Rate: 2.0},
	})
	if ranked[0].Country != "First" || ranked[1].Country != "Second" {
		t.Error("equal rates should keep input order")
	}
}

func TestRankByRateDoesNotMutateInput(t *testing.T) {
	entries := []RateEntry{
		{Country: "Japan", Rate: 157.3},
		{Country: "UK", Rate: 0.79},
	}
	RankByRate(entries)
	if entries[0].Country != "Japan" {
		t.Error("input slice was reordered")
	}
}

func TestFanOutFaultTolerance(t *testing.T) {
	fetch := func(ctx context.Context, entity string) ([]string, error) {
		switch entity {
		case "fails":
			return nil, fmt.Errorf("upstream exploded")
		case "empty":
			return []string{}, nil
		default:
			return []string{entity + "-record"}, nil
		}
	}

	results := FanOut(context.Background(), []string{"ok1", "fails", "empty", "ok2"}, fetch)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	// Input order is preserved.
	for i, want := range []string{"ok1", "fails", "empty", "ok2"} {
		if results[i].Entity != want {
			t.Errorf("results[%d].Entity = %s, want %s", i, results[i].Entity, want)
		}
	}

	if !results[0].Found || !results[3].Found {
		t.Error("successful entities should be found")
	}
	if results[1].Found {
		t.Error("failed entity should not be found")
	}
	if results[1].Records == nil || len(results[1].Records) != 0 {
		t.Error("failed entity should carry an empty record set")
	}
	if results[2].Found {
		t.Error("entity with zero records should not be found")
	}

	if got := CountFound(results); got != 2 {
		t.Errorf("CountFound = %d, want 2", got)
	}
}
