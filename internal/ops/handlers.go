package ops

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openfiscal/fiscalgate/internal/aggregate"
	"github.com/openfiscal/fiscalgate/internal/fiscal"
	"github.com/openfiscal/fiscalgate/internal/upstream"
)

// Upstream dataset labels reported verbatim in response envelopes.
const (
	SourceDebt     = "Debt to the Penny"
	SourceRates    = "Average Interest Rates on U.S. Treasury Securities"
	SourceExchange = "Treasury Reporting Rates of Exchange"
)

// Major countries queried by the report operation when majorCurrencies
// is set.
var majorCountries = []string{
	"Canada", "Mexico", "United Kingdom", "Japan", "China",
	"Switzerland", "Australia",
}

// securityFilters maps the securityType input values to the upstream
// security_desc filter strings. "all" carries no filter.
var securityFilters = map[string]string{
	"bills": "Treasury Bills",
	"notes": "Treasury Notes",
	"bonds": "Treasury Bonds",
	"tips":  "Treasury Inflation-Protected Securities (TIPS)",
	"total": "Total Marketable",
}

// Service builds and owns the gateway's operation set. All handlers
// share one upstream client; no other state is carried across requests.
type Service struct {
	client *upstream.Client
}

// NewService creates the operation service over the given upstream client.
func NewService(client *upstream.Client) *Service {
	return &Service{client: client}
}

// Registry returns a registry populated with the six priced operations.
func (s *Service) Registry() *Registry {
	r := NewRegistry()
	for _, op := range s.Operations() {
		if err := r.Register(op); err != nil {
			panic(err) // duplicate keys are a programming error
		}
	}
	return r
}

// Operations declares the gateway's operation table.
func (s *Service) Operations() []*Operation {
	return []*Operation{
		{
			Key:         "overview",
			Description: "Combined snapshot of total public debt and the latest average interest rate",
			Price:       0,
			Handler:     s.handleOverview,
		},
		{
			Key:         "debt",
			Description: "Debt to the Penny history with change-over-period summary",
			Price:       1000,
			Input: []Field{
				{Name: "days", Type: TypeInt, Default: 30, Min: intp(1), Max: intp(365)},
			},
			Handler: s.handleDebt,
		},
		{
			Key:         "interest-rates",
			Description: "Latest average interest rate per Treasury security",
			Price:       2000,
			Input: []Field{
				{Name: "securityType", Type: TypeString, Default: "all",
					Enum: []string{"all", "bills", "notes", "bonds", "tips", "total"}},
			},
			Handler: s.handleInterestRates,
		},
		{
			Key:         "exchange-rates",
			Description: "Latest Treasury exchange rate per country and currency",
			Price:       2000,
			Input: []Field{
				{Name: "currency", Type: TypeString},
				{Name: "limit", Type: TypeInt, Default: 50, Min: intp(1), Max: intp(200)},
			},
			Handler: s.handleExchangeRates,
		},
		{
			Key:         "compare",
			Description: "Rank the currencies of 2-10 countries against the USD",
			Price:       3000,
			Input: []Field{
				{Name: "countries", Type: TypeStringList, Required: true, MinLen: 2, MaxLen: 10},
			},
			Handler: s.handleCompare,
		},
		{
			Key:         "report",
			Description: "Multi-dataset fiscal report: debt trend, rates, and major currencies",
			Price:       5000,
			Input: []Field{
				{Name: "majorCurrencies", Type: TypeBool, Default: true},
			},
			Handler: s.handleReport,
		},
	}
}

func intp(n int) *int { return &n }

// now stamps envelopes at response-composition time, not request arrival.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ---------------------------------------------------------------------------
// overview (price 0)
// ---------------------------------------------------------------------------

// DebtSnapshot is the latest total-debt reading with display formatting.
type DebtSnapshot struct {
	Date      *string `json:"date"`
	TotalDebt *string `json:"totalDebt"`
	Formatted *string `json:"formatted"`
}

// RateSnapshot is the latest average-interest-rate reading.
type RateSnapshot struct {
	Date         *string `json:"date"`
	SecurityDesc *string `json:"securityDesc"`
	Rate         *string `json:"rate"`
	Formatted    *string `json:"formatted"`
}

// OverviewResult is the overview operation output.
type OverviewResult struct {
	Debt         *DebtSnapshot `json:"debt"`
	InterestRate *RateSnapshot `json:"interestRate"`
	DataSource   []string      `json:"dataSource"`
	FetchedAt    string        `json:"fetchedAt"`
}

func (s *Service) handleOverview(ctx context.Context, _ Input) (any, error) {
	var (
		debtRaw []upstream.RawRecord
		rateRaw []upstream.RawRecord
	)

	// Both queries are independent; either failure aborts the snapshot.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		debtRaw, err = s.client.Query(gctx, upstream.DatasetDebtToPenny, upstream.Params{
			Sort:     "-record_date",
			PageSize: 1,
		})
		return err
	})
	g.Go(func() error {
		var err error
		rateRaw, err = s.client.Query(gctx, upstream.DatasetAvgInterestRates, upstream.Params{
			Sort:     "-record_date",
			PageSize: 1,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &OverviewResult{
		DataSource: []string{SourceDebt, SourceRates},
	}
	if len(debtRaw) > 0 {
		d := fiscal.NormalizeDebt(debtRaw[0])
		result.Debt = &DebtSnapshot{
			Date:      d.Date,
			TotalDebt: d.TotalDebt,
			Formatted: fiscal.FormatTrillions(d.TotalDebt, 2),
		}
	}
	if len(rateRaw) > 0 {
		r := fiscal.NormalizeRate(rateRaw[0])
		result.InterestRate = &RateSnapshot{
			Date:         r.Date,
			SecurityDesc: r.SecurityDesc,
			Rate:         r.AvgInterestRate,
			Formatted:    fiscal.FormatPercent(r.AvgInterestRate),
		}
	}
	result.FetchedAt = now()
	return result, nil
}

// ---------------------------------------------------------------------------
// debt (price 1000)
// ---------------------------------------------------------------------------

// DebtResult is the debt operation output.
type DebtResult struct {
	Latest     *DebtSnapshot       `json:"latest"`
	History    []fiscal.DebtRecord `json:"history"`
	Summary    aggregate.DebtDelta `json:"summary"`
	DataSource string              `json:"dataSource"`
	FetchedAt  string              `json:"fetchedAt"`
}

func (s *Service) handleDebt(ctx context.Context, in Input) (any, error) {
	days := in.Int("days")

	raw, err := s.client.Query(ctx, upstream.DatasetDebtToPenny, upstream.Params{
		Sort:     "-record_date",
		PageSize: days,
	})
	if err != nil {
		return nil, err
	}

	history := fiscal.NormalizeDebtAll(raw)
	result := &DebtResult{
		History:    history,
		Summary:    aggregate.ComputeDebtDelta(history),
		DataSource: SourceDebt,
	}
	if len(history) > 0 {
		result.Latest = &DebtSnapshot{
			Date:      history[0].Date,
			TotalDebt: history[0].TotalDebt,
			Formatted: fiscal.FormatTrillions(history[0].TotalDebt, 2),
		}
	}
	result.FetchedAt = now()
	return result, nil
}

// ---------------------------------------------------------------------------
// interest-rates (price 2000)
// ---------------------------------------------------------------------------

// RateRow is one latest-per-security interest rate row.
type RateRow struct {
	SecurityType *string `json:"securityType"`
	SecurityDesc *string `json:"securityDesc"`
	Date         *string `json:"date"`
	Rate         *string `json:"rate"`
	Formatted    *string `json:"formatted"`
	FiscalYear   *string `json:"fiscalYear"`
}

// InterestRatesResult is the interest-rates operation output.
type InterestRatesResult struct {
	SecurityType string    `json:"securityType"`
	Rates        []RateRow `json:"rates"`
	DataSource   string    `json:"dataSource"`
	FetchedAt    string    `json:"fetchedAt"`
}

func (s *Service) handleInterestRates(ctx context.Context, in Input) (any, error) {
	secType := in.Str("securityType")

	params := upstream.Params{Sort: "-record_date", PageSize: 100}
	if desc, ok := securityFilters[secType]; ok {
		params.Filter = upstream.EqFilter("security_desc", desc)
	}

	raw, err := s.client.Query(ctx, upstream.DatasetAvgInterestRates, params)
	if err != nil {
		return nil, err
	}

	records := fiscal.NormalizeRateAll(raw)
	grouped := aggregate.GroupFirstSeen(records, func(r fiscal.RateRecord) string {
		if r.SecurityDesc == nil {
			return ""
		}
		return *r.SecurityDesc
	})

	rows := make([]RateRow, 0, grouped.Len())
	for _, r := range grouped.Records() {
		rows = append(rows, RateRow{
			SecurityType: r.SecurityType,
			SecurityDesc: r.SecurityDesc,
			Date:         r.Date,
			Rate:         r.AvgInterestRate,
			Formatted:    fiscal.FormatPercent(r.AvgInterestRate),
			FiscalYear:   r.FiscalYear,
		})
	}

	return &InterestRatesResult{
		SecurityType: secType,
		Rates:        rows,
		DataSource:   SourceRates,
		FetchedAt:    now(),
	}, nil
}

// ---------------------------------------------------------------------------
// exchange-rates (price 2000)
// ---------------------------------------------------------------------------

// ExchangeRatesResult is the exchange-rates operation output.
type ExchangeRatesResult struct {
	Count      int                     `json:"count"`
	Rates      []fiscal.ExchangeRecord `json:"rates"`
	DataSource string                  `json:"dataSource"`
	FetchedAt  string                  `json:"fetchedAt"`
}

func (s *Service) handleExchangeRates(ctx context.Context, in Input) (any, error) {
	params := upstream.Params{
		Sort:     "-record_date",
		PageSize: in.Int("limit"),
	}
	if country := in.Str("currency"); country != "" {
		params.Filter = upstream.EqFilter("country", country)
	}

	raw, err := s.client.Query(ctx, upstream.DatasetRatesOfExchange, params)
	if err != nil {
		return nil, err
	}

	records := fiscal.NormalizeExchangeAll(raw)
	grouped := aggregate.GroupFirstSeen(records, exchangeKey)

	rates := grouped.Records()
	return &ExchangeRatesResult{
		Count:      len(rates),
		Rates:      rates,
		DataSource: SourceExchange,
		FetchedAt:  now(),
	}, nil
}

// exchangeKey is the composite country+currency grouping key.
func exchangeKey(r fiscal.ExchangeRecord) string {
	if r.Country == nil || r.Currency == nil {
		return ""
	}
	return *r.Country + "+" + *r.Currency
}

// ---------------------------------------------------------------------------
// compare (price 3000)
// ---------------------------------------------------------------------------

// CompareResult is the compare operation output.
type CompareResult struct {
	Requested  int                `json:"requested"`
	Found      int                `json:"found"`
	Comparison []aggregate.Ranked `json:"comparison"`
	DataSource string             `json:"dataSource"`
	FetchedAt  string             `json:"fetchedAt"`
}

func (s *Service) handleCompare(ctx context.Context, in Input) (any, error) {
	countries := in.StrList("countries")

	results := aggregate.FanOut(ctx, countries, s.latestExchangeFor)

	entries := make([]aggregate.RateEntry, 0, len(results))
	for _, res := range results {
		if !res.Found {
			continue
		}
		rec := res.Records[0]
		rate, ok := fiscal.ParseAmount(rec.ExchangeRate)
		if !ok {
			continue
		}
		entries = append(entries, aggregate.RateEntry{
			Country:  res.Entity,
			Currency: strOr(rec.Currency),
			Date:     rec.Date,
			Rate:     rate,
		})
	}

	return &CompareResult{
		Requested:  len(countries),
		Found:      aggregate.CountFound(results),
		Comparison: aggregate.RankByRate(entries),
		DataSource: SourceExchange,
		FetchedAt:  now(),
	}, nil
}

// latestExchangeFor fetches the most recent exchange record for one country.
func (s *Service) latestExchangeFor(ctx context.Context, country string) ([]fiscal.ExchangeRecord, error) {
	raw, err := s.client.Query(ctx, upstream.DatasetRatesOfExchange, upstream.Params{
		Sort:     "-record_date",
		PageSize: 1,
		Filter:   upstream.EqFilter("country", country),
	})
	if err != nil {
		return nil, err
	}
	return fiscal.NormalizeExchangeAll(raw), nil
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ---------------------------------------------------------------------------
// report (price 5000)
// ---------------------------------------------------------------------------

// ReportDebt is the debt section of the report.
type ReportDebt struct {
	Latest  *DebtSnapshot       `json:"latest"`
	Summary aggregate.DebtDelta `json:"summary"`
}

// ReportExchange is the exchange-rates section of the report.
type ReportExchange struct {
	MajorCurrencies []aggregate.Ranked `json:"majorCurrencies"`
}

// ReportResult is the report operation output.
type ReportResult struct {
	Debt          *ReportDebt     `json:"debt"`
	InterestRates []RateRow       `json:"interestRates"`
	ExchangeRates *ReportExchange `json:"exchangeRates,omitempty"`
	DataSource    []string        `json:"dataSource"`
	GeneratedAt   string          `json:"generatedAt"`
}

func (s *Service) handleReport(ctx context.Context, in Input) (any, error) {
	var (
		debtRaw []upstream.RawRecord
		rateRaw []upstream.RawRecord
	)

	// Primary queries are fail-fast: either failure aborts the report.
	// The currency sub-queries below are individually fault-tolerant.
	// The asymmetry is deliberate; do not unify the two fail policies.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		debtRaw, err = s.client.Query(gctx, upstream.DatasetDebtToPenny, upstream.Params{
			Sort:     "-record_date",
			PageSize: 30,
		})
		return err
	})
	g.Go(func() error {
		var err error
		rateRaw, err = s.client.Query(gctx, upstream.DatasetAvgInterestRates, upstream.Params{
			Sort:     "-record_date",
			PageSize: 100,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	history := fiscal.NormalizeDebtAll(debtRaw)
	debt := &ReportDebt{Summary: aggregate.ComputeDebtDelta(history)}
	if len(history) > 0 {
		debt.Latest = &DebtSnapshot{
			Date:      history[0].Date,
			TotalDebt: history[0].TotalDebt,
			Formatted: fiscal.FormatTrillions(history[0].TotalDebt, 3),
		}
	}

	rateRecords := fiscal.NormalizeRateAll(rateRaw)
	groupedRates := aggregate.GroupFirstSeen(rateRecords, func(r fiscal.RateRecord) string {
		if r.SecurityDesc == nil {
			return ""
		}
		return *r.SecurityDesc
	})
	rateRows := make([]RateRow, 0, groupedRates.Len())
	for _, r := range groupedRates.Records() {
		rateRows = append(rateRows, RateRow{
			SecurityType: r.SecurityType,
			SecurityDesc: r.SecurityDesc,
			Date:         r.Date,
			Rate:         r.AvgInterestRate,
			Formatted:    fiscal.FormatPercent(r.AvgInterestRate),
			FiscalYear:   r.FiscalYear,
		})
	}

	result := &ReportResult{
		Debt:          debt,
		InterestRates: rateRows,
		DataSource:    []string{SourceDebt, SourceRates},
	}

	if in.Bool("majorCurrencies") {
		results := aggregate.FanOut(ctx, majorCountries, s.latestExchangeFor)
		entries := make([]aggregate.RateEntry, 0, len(results))
		for _, res := range results {
			if !res.Found {
				continue // failed sub-queries are omitted, not fatal
			}
			rec := res.Records[0]
			rate, ok := fiscal.ParseAmount(rec.ExchangeRate)
			if !ok {
				continue
			}
			entries = append(entries, aggregate.RateEntry{
				Country:  res.Entity,
				Currency: strOr(rec.Currency),
				Date:     rec.Date,
				Rate:     rate,
			})
		}
		result.ExchangeRates = &ReportExchange{MajorCurrencies: aggregate.RankByRate(entries)}
		result.DataSource = append(result.DataSource, SourceExchange)
	}

	result.GeneratedAt = now()
	return result, nil
}
