// Package aggregate computes read-side rollups over the reconciled
// population: dashboard totals, district tables, chart series and overdue
// lists. Everything here is a pure function of its inputs plus the clock, so
// the rollups can run concurrently with each other.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"contract-ledger-service/internal/models"

	"github.com/shopspring/decimal"
)

// Aggregator computes rollups relative to an injectable "today".
type Aggregator struct {
	now func() time.Time
}

// New creates an Aggregator using the wall clock.
func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// WithClock overrides the clock.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// DashboardStats is the front-page summary of the whole population.
type DashboardStats struct {
	TotalContracts     int `json:"total_contracts"`
	ActiveContracts    int `json:"active_contracts"`
	CancelledContracts int `json:"cancelled_contracts"`
	CompletedContracts int `json:"completed_contracts"`
	NeedsReview        int `json:"needs_review"`

	// Contract amounts partitioned the same way as the counts.
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ActiveAmount    decimal.Decimal `json:"active_amount"`
	CancelledAmount decimal.Decimal `json:"cancelled_amount"`
	CompletedAmount decimal.Decimal `json:"completed_amount"`

	LegalEntities int `json:"legal_entities"`
	Individuals   int `json:"individuals"`

	TotalPlanned decimal.Decimal `json:"total_planned"`
	TotalActual  decimal.Decimal `json:"total_actual"`
	TotalDebt    decimal.Decimal `json:"total_debt"`

	PaidContracts int `json:"paid_contracts"`
	Debtors       int `json:"debtors"`

	// TodayDebt is what should have been paid by now but was not:
	// planned amounts due on or before today minus everything actually
	// paid, floored at zero.
	TodayDebt decimal.Decimal `json:"today_debt"`
}

// Dashboard computes the summary totals.
func (a *Aggregator) Dashboard(contracts []*models.Contract, schedules []*models.PaymentSchedule) *DashboardStats {
	stats := &DashboardStats{
		TotalContracts:  len(contracts),
		TotalAmount:     decimal.Zero,
		ActiveAmount:    decimal.Zero,
		CancelledAmount: decimal.Zero,
		CompletedAmount: decimal.Zero,
		TotalPlanned:    decimal.Zero,
		TotalActual:     decimal.Zero,
		TotalDebt:       decimal.Zero,
		TodayDebt:       decimal.Zero,
	}

	for _, c := range contracts {
		stats.TotalAmount = stats.TotalAmount.Add(c.ContractAmount)
		switch c.Status {
		case models.StatusActive:
			stats.ActiveContracts++
			stats.ActiveAmount = stats.ActiveAmount.Add(c.ContractAmount)
		case models.StatusCancelled:
			stats.CancelledContracts++
			stats.CancelledAmount = stats.CancelledAmount.Add(c.ContractAmount)
		case models.StatusCompleted:
			stats.CompletedContracts++
			stats.CompletedAmount = stats.CompletedAmount.Add(c.ContractAmount)
		}
		if c.NeedsReview {
			stats.NeedsReview++
		}
		if c.IsLegalEntity() {
			stats.LegalEntities++
		} else if c.IsIndividual() {
			stats.Individuals++
		}
	}

	today := a.now()
	plannedDueByToday := decimal.Zero
	paid := make(map[string]struct{})
	debtors := make(map[string]struct{})

	for _, s := range schedules {
		stats.TotalPlanned = stats.TotalPlanned.Add(s.PlannedAmount)
		stats.TotalActual = stats.TotalActual.Add(s.ActualAmount)
		stats.TotalDebt = stats.TotalDebt.Add(s.DebtAmount)

		if !s.DueDate.After(today) {
			plannedDueByToday = plannedDueByToday.Add(s.PlannedAmount)
		}
		if s.ActualAmount.IsPositive() {
			paid[s.ContractNumber] = struct{}{}
		}
		if s.DebtAmount.IsPositive() {
			debtors[s.ContractNumber] = struct{}{}
		}
	}

	stats.PaidContracts = len(paid)
	stats.Debtors = len(debtors)

	todayDebt := plannedDueByToday.Sub(stats.TotalActual)
	if todayDebt.IsPositive() {
		stats.TodayDebt = todayDebt
	}

	return stats
}

// BucketSpec names a fixed reporting window. Quarter 0 means the whole year.
type BucketSpec struct {
	Label   string
	Year    int
	Quarter int
}

// DefaultBuckets returns the standing reporting windows of the district
// table.
func DefaultBuckets() []BucketSpec {
	return []BucketSpec{
		{Label: "2025 Q3", Year: 2025, Quarter: 3},
		{Label: "2025 Q4", Year: 2025, Quarter: 4},
		{Label: "2026", Year: 2026},
		{Label: "2027", Year: 2027},
	}
}

func (b BucketSpec) contains(s *models.PaymentSchedule) bool {
	if s.Year != b.Year {
		return false
	}
	return b.Quarter == 0 || s.Quarter() == b.Quarter
}

// PeriodBucket is one named window's totals inside a district row.
type PeriodBucket struct {
	Label   string          `json:"label"`
	Planned decimal.Decimal `json:"planned"`
	Actual  decimal.Decimal `json:"actual"`
	Debt    decimal.Decimal `json:"debt"`
}

// DistrictStats is one row of the per-district table: the dashboard
// partitions scoped to a single district plus the named-window columns.
type DistrictStats struct {
	District           string `json:"district"`
	Contracts          int    `json:"contracts"`
	ActiveContracts    int    `json:"active_contracts"`
	CancelledContracts int    `json:"cancelled_contracts"`
	CompletedContracts int    `json:"completed_contracts"`

	TotalAmount     decimal.Decimal `json:"total_amount"`
	ActiveAmount    decimal.Decimal `json:"active_amount"`
	CancelledAmount decimal.Decimal `json:"cancelled_amount"`
	CompletedAmount decimal.Decimal `json:"completed_amount"`

	TotalPlanned decimal.Decimal `json:"total_planned"`
	TotalActual  decimal.Decimal `json:"total_actual"`
	TotalDebt    decimal.Decimal `json:"total_debt"`

	PaidToday   decimal.Decimal `json:"paid_today"`
	PaidWeek    decimal.Decimal `json:"paid_week"`
	PaidMonth   decimal.Decimal `json:"paid_month"`
	PaidQuarter decimal.Decimal `json:"paid_quarter"`
	PaidTotal   decimal.Decimal `json:"paid_total"`

	Buckets []PeriodBucket `json:"buckets"`
}

// Districts rolls the schedule population up by contract district, with the
// given named windows as extra columns. Rows come back sorted by planned
// amount, largest district first.
func (a *Aggregator) Districts(contracts []*models.Contract, schedules []*models.PaymentSchedule, buckets []BucketSpec) []*DistrictStats {
	districtOf := make(map[string]string, len(contracts))
	rows := make(map[string]*DistrictStats)

	row := func(district string) *DistrictStats {
		r, ok := rows[district]
		if !ok {
			r = &DistrictStats{
				District:        district,
				TotalAmount:     decimal.Zero,
				ActiveAmount:    decimal.Zero,
				CancelledAmount: decimal.Zero,
				CompletedAmount: decimal.Zero,
				TotalPlanned:    decimal.Zero,
				TotalActual:     decimal.Zero,
				TotalDebt:       decimal.Zero,
				Buckets:         make([]PeriodBucket, len(buckets)),
			}
			for i, b := range buckets {
				r.Buckets[i] = PeriodBucket{
					Label:   b.Label,
					Planned: decimal.Zero,
					Actual:  decimal.Zero,
					Debt:    decimal.Zero,
				}
			}
			rows[district] = r
		}
		return r
	}

	for _, c := range contracts {
		districtOf[c.ContractNumber] = c.District
		r := row(c.District)
		r.Contracts++
		r.TotalAmount = r.TotalAmount.Add(c.ContractAmount)
		switch c.Status {
		case models.StatusActive:
			r.ActiveContracts++
			r.ActiveAmount = r.ActiveAmount.Add(c.ContractAmount)
		case models.StatusCancelled:
			r.CancelledContracts++
			r.CancelledAmount = r.CancelledAmount.Add(c.ContractAmount)
		case models.StatusCompleted:
			r.CompletedContracts++
			r.CompletedAmount = r.CompletedAmount.Add(c.ContractAmount)
		}
	}

	schedulesOf := make(map[string][]*models.PaymentSchedule)
	for _, s := range schedules {
		district, ok := districtOf[s.ContractNumber]
		if !ok {
			continue
		}
		schedulesOf[district] = append(schedulesOf[district], s)

		r := row(district)
		r.TotalPlanned = r.TotalPlanned.Add(s.PlannedAmount)
		r.TotalActual = r.TotalActual.Add(s.ActualAmount)
		r.TotalDebt = r.TotalDebt.Add(s.DebtAmount)

		for i, b := range buckets {
			if b.contains(s) {
				r.Buckets[i].Planned = r.Buckets[i].Planned.Add(s.PlannedAmount)
				r.Buckets[i].Actual = r.Buckets[i].Actual.Add(s.ActualAmount)
				r.Buckets[i].Debt = r.Buckets[i].Debt.Add(s.DebtAmount)
			}
		}
	}

	for district, r := range rows {
		subset := schedulesOf[district]
		r.PaidToday = a.PaidIn(subset, PaidToday)
		r.PaidWeek = a.PaidIn(subset, PaidWeek)
		r.PaidMonth = a.PaidIn(subset, PaidMonth)
		r.PaidQuarter = a.PaidIn(subset, PaidQuarter)
		r.PaidTotal = a.PaidIn(subset, PaidAll)
	}

	out := make([]*DistrictStats, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalPlanned.Equal(out[j].TotalPlanned) {
			return out[i].TotalPlanned.GreaterThan(out[j].TotalPlanned)
		}
		return out[i].District < out[j].District
	})
	return out
}

// ChartPoint is one bucket of a time series.
type ChartPoint struct {
	Label   string          `json:"label"`
	Planned decimal.Decimal `json:"planned"`
	Actual  decimal.Decimal `json:"actual"`
}

const (
	monthlyChartBuckets   = 12
	quarterlyChartBuckets = 8
)

// MonthlySeries sums schedule amounts by calendar month of the due date,
// labelled YYYY-MM, truncated to the most recent 12 buckets in ascending
// order.
func (a *Aggregator) MonthlySeries(schedules []*models.PaymentSchedule) []ChartPoint {
	return a.series(schedules, monthlyChartBuckets, func(s *models.PaymentSchedule) (int, string) {
		y, m := s.DueDate.Year(), int(s.DueDate.Month())
		return y*100 + m, fmt.Sprintf("%04d-%02d", y, m)
	})
}

// QuarterlySeries sums schedule amounts by quarter, labelled "YYYY Qn",
// truncated to the most recent 8 buckets.
func (a *Aggregator) QuarterlySeries(schedules []*models.PaymentSchedule) []ChartPoint {
	return a.series(schedules, quarterlyChartBuckets, func(s *models.PaymentSchedule) (int, string) {
		q := (int(s.DueDate.Month())-1)/3 + 1
		return s.DueDate.Year()*10 + q, fmt.Sprintf("%d Q%d", s.DueDate.Year(), q)
	})
}

// YearlySeries sums schedule amounts by year, all years included.
func (a *Aggregator) YearlySeries(schedules []*models.PaymentSchedule) []ChartPoint {
	return a.series(schedules, 0, func(s *models.PaymentSchedule) (int, string) {
		return s.DueDate.Year(), fmt.Sprintf("%d", s.DueDate.Year())
	})
}

// series groups schedules by a sortable bucket key. limit 0 keeps every
// bucket; otherwise only the most recent limit buckets survive, oldest
// first.
func (a *Aggregator) series(schedules []*models.PaymentSchedule, limit int, keyOf func(*models.PaymentSchedule) (int, string)) []ChartPoint {
	type bucket struct {
		key   int
		point ChartPoint
	}
	byKey := make(map[int]*bucket)

	for _, s := range schedules {
		key, label := keyOf(s)
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key, point: ChartPoint{Label: label, Planned: decimal.Zero, Actual: decimal.Zero}}
			byKey[key] = b
		}
		b.point.Planned = b.point.Planned.Add(s.PlannedAmount)
		b.point.Actual = b.point.Actual.Add(s.ActualAmount)
	}

	ordered := make([]*bucket, 0, len(byKey))
	for _, b := range byKey {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].key < ordered[j].key })

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}

	points := make([]ChartPoint, 0, len(ordered))
	for _, b := range ordered {
		points = append(points, b.point)
	}
	return points
}

// OverdueContract is one row of the overdue-debt list.
type OverdueContract struct {
	ContractNumber string          `json:"contract_number"`
	CompanyName    string          `json:"company_name"`
	District       string          `json:"district"`
	OverduePeriods int             `json:"overdue_periods"`
	OverdueDebt    decimal.Decimal `json:"overdue_debt"`
	OldestDueDate  time.Time       `json:"oldest_due_date"`
}

// OverdueContracts lists contracts with at least one overdue period, worst
// debtor first.
func (a *Aggregator) OverdueContracts(contracts []*models.Contract, schedules []*models.PaymentSchedule) []*OverdueContract {
	byNumber := make(map[string]*models.Contract, len(contracts))
	for _, c := range contracts {
		byNumber[c.ContractNumber] = c
	}

	rows := make(map[string]*OverdueContract)
	for _, s := range schedules {
		if !s.IsOverdue {
			continue
		}
		contract, ok := byNumber[s.ContractNumber]
		if !ok {
			continue
		}
		r, ok := rows[s.ContractNumber]
		if !ok {
			r = &OverdueContract{
				ContractNumber: contract.ContractNumber,
				CompanyName:    contract.CompanyName,
				District:       contract.District,
				OverdueDebt:    decimal.Zero,
				OldestDueDate:  s.DueDate,
			}
			rows[s.ContractNumber] = r
		}
		r.OverduePeriods++
		r.OverdueDebt = r.OverdueDebt.Add(s.DebtAmount)
		if s.DueDate.Before(r.OldestDueDate) {
			r.OldestDueDate = s.DueDate
		}
	}

	out := make([]*OverdueContract, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OverdueDebt.Equal(out[j].OverdueDebt) {
			return out[i].OverdueDebt.GreaterThan(out[j].OverdueDebt)
		}
		return out[i].ContractNumber < out[j].ContractNumber
	})
	return out
}

// PaidBetween sums actual amounts of schedules whose due date falls inside
// [from, to] inclusive. Zero times disable that bound.
func (a *Aggregator) PaidBetween(schedules []*models.PaymentSchedule, from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, s := range schedules {
		if !from.IsZero() && s.DueDate.Before(from) {
			continue
		}
		if !to.IsZero() && s.DueDate.After(to) {
			continue
		}
		total = total.Add(s.ActualAmount)
	}
	return total
}

// PaidPeriod names a standing paid-total window ending today.
type PaidPeriod string

const (
	PaidToday   PaidPeriod = "today"
	PaidWeek    PaidPeriod = "week"
	PaidMonth   PaidPeriod = "month"
	PaidQuarter PaidPeriod = "quarter"
	PaidYear    PaidPeriod = "year"
	PaidAll     PaidPeriod = "all"
)

// PaidIn sums actuals over a named window ending today. Unknown periods
// behave like PaidAll.
func (a *Aggregator) PaidIn(schedules []*models.PaymentSchedule, period PaidPeriod) decimal.Decimal {
	today := a.now()
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	var from time.Time
	switch period {
	case PaidToday:
		from = day
	case PaidWeek:
		from = day.AddDate(0, 0, -6)
	case PaidMonth:
		from = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	case PaidQuarter:
		firstMonth := time.Month((int(today.Month())-1)/3*3 + 1)
		from = time.Date(today.Year(), firstMonth, 1, 0, 0, 0, 0, today.Location())
	case PaidYear:
		from = time.Date(today.Year(), 1, 1, 0, 0, 0, 0, today.Location())
	}
	return a.PaidBetween(schedules, from, today)
}

// RecentContracts returns the n most recently signed contracts, newest
// first.
func (a *Aggregator) RecentContracts(contracts []*models.Contract, n int) []*models.Contract {
	out := make([]*models.Contract, len(contracts))
	copy(out, contracts)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ContractDate.Equal(out[j].ContractDate) {
			return out[i].ContractDate.After(out[j].ContractDate)
		}
		return out[i].ContractNumber < out[j].ContractNumber
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RecentPayments returns the n most recent payment facts, newest first.
func (a *Aggregator) RecentPayments(payments []*models.PaymentFact, n int) []*models.PaymentFact {
	out := make([]*models.PaymentFact, len(payments))
	copy(out, payments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaymentDate.After(out[j].PaymentDate)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
