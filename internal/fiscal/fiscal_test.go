package fiscal

import (
	"testing"

	"github.com/openfiscal/fiscalgate/internal/upstream"
)

func strp(s string) *string { return &s }

func TestNormalizeDebt(t *testing.T) {
	raw := upstream.RawRecord{
		"record_date":          "2024-06-01",
		"tot_pub_debt_out_amt": "34500000000000",
		"debt_held_public_amt": "27100000000000",
		"intragov_hold_amt":    "7400000000000",
		"record_fiscal_year":   "2024",
	}

	d := NormalizeDebt(raw)
	if d.Date == nil || *d.Date != "2024-06-01" {
		t.Errorf("Date = %v", d.Date)
	}
	if d.TotalDebt == nil || *d.TotalDebt != "34500000000000" {
		t.Errorf("TotalDebt = %v", d.TotalDebt)
	}
	if d.DebtHeldByPublic == nil || *d.DebtHeldByPublic != "27100000000000" {
		t.Errorf("DebtHeldByPublic = %v", d.DebtHeldByPublic)
	}
	if d.IntragovHoldings == nil || *d.IntragovHoldings != "7400000000000" {
		t.Errorf("IntragovHoldings = %v", d.IntragovHoldings)
	}
	if d.FiscalYear == nil || *d.FiscalYear != "2024" {
		t.Errorf("FiscalYear = %v", d.FiscalYear)
	}
}

func TestNormalizeAbsentFieldsAreNil(t *testing.T) {
	d := NormalizeDebt(upstream.RawRecord{"record_date": "2024-06-01"})
	if d.TotalDebt != nil {
		t.Errorf("absent TotalDebt should be nil, got %v", *d.TotalDebt)
	}
	if d.FiscalYear != nil {
		t.Errorf("absent FiscalYear should be nil, got %v", *d.FiscalYear)
	}

	r := NormalizeRate(upstream.RawRecord{})
	if r.Date != nil || r.SecurityDesc != nil || r.AvgInterestRate != nil {
		t.Error("all fields of an empty rate record should be nil")
	}

	e := NormalizeExchange(upstream.RawRecord{"country": "Japan"})
	if e.Country == nil || *e.Country != "Japan" {
		t.Errorf("Country = %v", e.Country)
	}
	if e.ExchangeRate != nil {
		t.Error("absent ExchangeRate should be nil")
	}
}

func TestNormalizeNonStringFieldIsNil(t *testing.T) {
	// Fiscal Data returns strings; anything else is treated as absent.
	d := NormalizeDebt(upstream.RawRecord{"tot_pub_debt_out_amt": 34.5})
	if d.TotalDebt != nil {
		t.Errorf("non-string TotalDebt should be nil, got %v", *d.TotalDebt)
	}
}

func TestNormalizeRate(t *testing.T) {
	r := NormalizeRate(upstream.RawRecord{
		"record_date":           "2024-05-31",
		"security_type_desc":    "Marketable",
		"security_desc":         "Treasury Bills",
		"avg_interest_rate_amt": "5.365",
		"record_fiscal_year":    "2024",
	})
	if r.SecurityDesc == nil || *r.SecurityDesc != "Treasury Bills" {
		t.Errorf("SecurityDesc = %v", r.SecurityDesc)
	}
	if r.AvgInterestRate == nil || *r.AvgInterestRate != "5.365" {
		t.Errorf("AvgInterestRate = %v", r.AvgInterestRate)
	}
}

func TestNormalizeExchangeAllPreservesOrder(t *testing.T) {
	raws := []upstream.RawRecord{
		{"country": "Japan", "currency": "Yen"},
		{"country": "Canada", "currency": "Dollar"},
	}
	records := NormalizeExchangeAll(raws)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if *records[0].Country != "Japan" || *records[1].Country != "Canada" {
		t.Error("record order not preserved")
	}
}

func TestFormatTrillions(t *testing.T) {
	tests := []struct {
		name     string
		in       *string
		decimals int
		want     *string
	}{
		{"overview two decimals", strp("34500000000000"), 2, strp("$34.50 trillion")},
		{"report three decimals", strp("34512340000000"), 3, strp("$34.512 trillion")},
		{"rounding", strp("34567000000000"), 2, strp("$34.57 trillion")},
		{"nil input", nil, 2, nil},
		{"non-numeric", strp("n/a"), 2, nil},
		{"empty string", strp(""), 2, nil},
	}
	for _, tt := range tests {
		got := FormatTrillions(tt.in, tt.decimals)
		if (got == nil) != (tt.want == nil) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
			continue
		}
		if got != nil && *got != *tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, *got, *tt.want)
		}
	}
}

func TestFormatBillions(t *testing.T) {
	if got := FormatBillions(10e9); *got != "$10.00 billion" {
		t.Errorf("FormatBillions(10e9) = %q", *got)
	}
	if got := FormatBillions(-2.5e9); *got != "$-2.50 billion" {
		t.Errorf("FormatBillions(-2.5e9) = %q", *got)
	}
	if got := FormatBillionsPerDay(1.25e9); *got != "$1.25 billion/day" {
		t.Errorf("FormatBillionsPerDay(1.25e9) = %q", *got)
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   *string
		want *string
	}{
		{strp("5.365"), strp("5.365%")},
		{strp("0"), strp("0%")},
		{nil, nil},
		{strp("pending"), nil},
	}
	for _, tt := range tests {
		got := FormatPercent(tt.in)
		if (got == nil) != (tt.want == nil) {
			t.Errorf("FormatPercent(%v) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		if got != nil && *got != *tt.want {
			t.Errorf("FormatPercent = %q, want %q", *got, *tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	if v, ok := ParseAmount(strp("34500000000000")); !ok || v != 34500000000000 {
		t.Errorf("ParseAmount = %v, %v", v, ok)
	}
	if _, ok := ParseAmount(nil); ok {
		t.Error("nil should not parse")
	}
	if _, ok := ParseAmount(strp("abc")); ok {
		t.Error("non-numeric should not parse")
	}
}
