package matcher

import (
	"testing"
	"time"

	"contract-ledger-service/internal/models"
)

func contract(number, taxID, district string, status models.ContractStatus, contractDate time.Time) *models.Contract {
	return &models.Contract{
		ContractNumber: number,
		TaxID:          taxID,
		CompanyName:    "Test LLC",
		District:       district,
		Status:         status,
		ContractDate:   contractDate,
	}
}

func payment(taxID, district string, date time.Time) *models.PaymentFact {
	return &models.PaymentFact{
		PaymentDate: date,
		TaxID:       taxID,
		District:    district,
	}
}

var (
	early = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	late  = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

func TestMatch_SingleCandidate(t *testing.T) {
	contracts := []*models.Contract{
		contract("APZ-001", "200123456", "Yunusobod", models.StatusActive, early),
	}
	payments := []*models.PaymentFact{
		payment("200123456", "Chilonzor", late),
	}

	matched := NewMatcher(contracts).Match(payments)

	if matched != 1 {
		t.Fatalf("Expected 1 match, got %d", matched)
	}
	if !payments[0].Matched || payments[0].ContractNumber != "APZ-001" {
		t.Errorf("Payment should be matched to APZ-001, got %+v", payments[0])
	}
}

func TestMatch_NoIdentifierLeftUnmatched(t *testing.T) {
	contracts := []*models.Contract{
		contract("APZ-001", "200123456", "Yunusobod", models.StatusActive, early),
	}
	payments := []*models.PaymentFact{
		payment("", "Yunusobod", late),
	}

	matched := NewMatcher(contracts).Match(payments)

	if matched != 0 {
		t.Fatalf("Expected 0 matches, got %d", matched)
	}
	if payments[0].Matched {
		t.Error("Payment without identifier must stay unmatched")
	}
}

func TestMatch_ScoringPicksStrictMaximum(t *testing.T) {
	// Same tax id on both contracts. The first scores 0 (payment predates
	// the contract, wrong district, cancelled); the second scores the full 6.
	contracts := []*models.Contract{
		contract("APZ-001", "200123456", "Chilonzor", models.StatusCancelled, late),
		contract("APZ-002", "200123456", "Yunusobod", models.StatusActive, early),
	}
	payments := []*models.PaymentFact{
		payment("200123456", "Yunusobod", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	}

	matched := NewMatcher(contracts).Match(payments)

	if matched != 1 {
		t.Fatalf("Expected 1 match, got %d", matched)
	}
	if payments[0].ContractNumber != "APZ-002" {
		t.Errorf("Expected APZ-002, got %s", payments[0].ContractNumber)
	}
}

func TestMatch_AllZeroScoresLeftUnmatched(t *testing.T) {
	paymentDate := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	contracts := []*models.Contract{
		contract("APZ-001", "200123456", "Chilonzor", models.StatusCancelled, early),
		contract("APZ-002", "200123456", "Sergeli", models.StatusCompleted, early),
	}
	payments := []*models.PaymentFact{
		payment("200123456", "Yunusobod", paymentDate),
	}

	matched := NewMatcher(contracts).Match(payments)

	if matched != 0 {
		t.Fatalf("Ambiguous zero-score candidates must stay unmatched, got %d matches", matched)
	}
}

func TestMatch_UndatedContractEarnsNoDatePoints(t *testing.T) {
	// Neither candidate shares a district or is active; the payment predates
	// the dated contract. The undated contract must not score for date
	// compatibility, so the payment stays unmatched.
	contracts := []*models.Contract{
		contract("APZ-001", "200123456", "Chilonzor", models.StatusCancelled, time.Time{}),
		contract("APZ-002", "200123456", "Sergeli", models.StatusCompleted, late),
	}
	payments := []*models.PaymentFact{
		payment("200123456", "Yunusobod", early),
	}

	matched := NewMatcher(contracts).Match(payments)

	if matched != 0 {
		t.Fatalf("Undated contract must not win on date points, got %d matches", matched)
	}
	if payments[0].Matched {
		t.Errorf("Payment unexpectedly matched to %s", payments[0].ContractNumber)
	}
}

func TestMatch_TieBreaksByLowestContractNumber(t *testing.T) {
	// Identical contracts apart from the number: both score 3+1. The lower
	// contract number must win regardless of index order.
	build := func(order []string) string {
		var contracts []*models.Contract
		for _, number := range order {
			contracts = append(contracts, contract(number, "200123456", "Chilonzor", models.StatusActive, early))
		}
		payments := []*models.PaymentFact{
			payment("200123456", "Yunusobod", late),
		}
		NewMatcher(contracts).Match(payments)
		return payments[0].ContractNumber
	}

	if got := build([]string{"APZ-002", "APZ-001"}); got != "APZ-001" {
		t.Errorf("Expected APZ-001, got %s", got)
	}
	if got := build([]string{"APZ-001", "APZ-002"}); got != "APZ-001" {
		t.Errorf("Expected APZ-001 independent of ordering, got %s", got)
	}
}

func TestMatch_IdentifierPrecedence(t *testing.T) {
	// A payment with a tax id never falls through to national id lookup,
	// even when the tax id finds nothing.
	contracts := []*models.Contract{
		{
			ContractNumber: "APZ-001",
			NationalID:     "31234567890123",
			CompanyName:    "J. Karimov",
			Status:         models.StatusActive,
		},
	}
	p := &models.PaymentFact{
		PaymentDate: late,
		TaxID:       "999999999",
		NationalID:  "31234567890123",
	}

	matched := NewMatcher(contracts).Match([]*models.PaymentFact{p})

	if matched != 0 {
		t.Fatalf("Tax id lookup must not fall through, got %d matches", matched)
	}
}

func TestMatch_Idempotent(t *testing.T) {
	contracts := []*models.Contract{
		contract("APZ-001", "200123456", "Yunusobod", models.StatusActive, early),
	}
	p := payment("200123456", "Yunusobod", late)
	p.Matched = true
	p.ContractNumber = "APZ-999" // previously matched elsewhere

	m := NewMatcher(contracts)
	if matched := m.Match([]*models.PaymentFact{p}); matched != 0 {
		t.Fatalf("Re-run must not touch matched payments, got %d", matched)
	}
	if p.ContractNumber != "APZ-999" {
		t.Errorf("Existing match overwritten: %s", p.ContractNumber)
	}
}
