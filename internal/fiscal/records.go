// Package fiscal normalizes the heterogeneous per-dataset rows of the
// Fiscal Data API into stable domain records, and renders display strings
// for monetary and percentage values.
//
// Every domain record field is either copied verbatim from the matching
// raw field or nil when the source field is absent; no default numeric
// values are ever substituted. Raw untyped maps must not travel past
// this package's boundary.
package fiscal

import "github.com/openfiscal/fiscalgate/internal/upstream"

// DebtRecord is one normalized row of the Debt to the Penny dataset.
type DebtRecord struct {
	Date             *string `json:"date"`
	TotalDebt        *string `json:"totalDebt"`
	DebtHeldByPublic *string `json:"debtHeldByPublic"`
	IntragovHoldings *string `json:"intragovHoldings"`
	FiscalYear       *string `json:"fiscalYear"`
}

// RateRecord is one normalized row of the Average Interest Rates dataset.
type RateRecord struct {
	Date            *string `json:"date"`
	SecurityType    *string `json:"securityType"`
	SecurityDesc    *string `json:"securityDesc"`
	AvgInterestRate *string `json:"avgInterestRate"`
	FiscalYear      *string `json:"fiscalYear"`
}

// ExchangeRecord is one normalized row of the Rates of Exchange dataset.
type ExchangeRecord struct {
	Date          *string `json:"date"`
	Country       *string `json:"country"`
	Currency      *string `json:"currency"`
	ExchangeRate  *string `json:"exchangeRate"`
	EffectiveDate *string `json:"effectiveDate"`
}

// NormalizeDebt maps a raw debt_to_penny row to a DebtRecord.
func NormalizeDebt(raw upstream.RawRecord) DebtRecord {
	return DebtRecord{
		Date:             field(raw, "record_date"),
		TotalDebt:        field(raw, "tot_pub_debt_out_amt"),
		DebtHeldByPublic: field(raw, "debt_held_public_amt"),
		IntragovHoldings: field(raw, "intragov_hold_amt"),
		FiscalYear:       field(raw, "record_fiscal_year"),
	}
}

// NormalizeRate maps a raw avg_interest_rates row to a RateRecord.
func NormalizeRate(raw upstream.RawRecord) RateRecord {
	return RateRecord{
		Date:            field(raw, "record_date"),
		SecurityType:    field(raw, "security_type_desc"),
		SecurityDesc:    field(raw, "security_desc"),
		AvgInterestRate: field(raw, "avg_interest_rate_amt"),
		FiscalYear:      field(raw, "record_fiscal_year"),
	}
}

// NormalizeExchange maps a raw rates_of_exchange row to an ExchangeRecord.
func NormalizeExchange(raw upstream.RawRecord) ExchangeRecord {
	return ExchangeRecord{
		Date:          field(raw, "record_date"),
		Country:       field(raw, "country"),
		Currency:      field(raw, "currency"),
		ExchangeRate:  field(raw, "exchange_rate"),
		EffectiveDate: field(raw, "effective_date"),
	}
}

// NormalizeDebtAll maps a slice of raw rows, preserving order.
func NormalizeDebtAll(raws []upstream.RawRecord) []DebtRecord {
	out := make([]DebtRecord, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeDebt(r))
	}
	return out
}

// NormalizeRateAll maps a slice of raw rows, preserving order.
func NormalizeRateAll(raws []upstream.RawRecord) []RateRecord {
	out := make([]RateRecord, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeRate(r))
	}
	return out
}

// NormalizeExchangeAll maps a slice of raw rows, preserving order.
func NormalizeExchangeAll(raws []upstream.RawRecord) []ExchangeRecord {
	out := make([]ExchangeRecord, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeExchange(r))
	}
	return out
}

// field extracts a raw field as *string, nil when absent or not a string.
// Fiscal Data returns all values as JSON strings.
func field(raw upstream.RawRecord, name string) *string {
	v, ok := raw[name]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
