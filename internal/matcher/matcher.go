// Package matcher links unmatched payment facts to contracts by identifier
// equality plus a scoring heuristic for ambiguous candidates.
package matcher

import (
	"sort"
	"strings"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/pkg/logger"
)

// Scoring weights for ambiguous candidates. Date compatibility outweighs
// district agreement, which outweighs contract status.
const (
	scoreDateCompatible = 3
	scoreDistrictMatch  = 2
	scoreActiveStatus   = 1
)

// Matcher assigns payments to contracts. Matching is idempotent: already
// matched payments are never touched, so a batch can be re-run safely.
type Matcher struct {
	logger logger.Logger

	byTaxID      map[string][]*models.Contract
	byNationalID map[string][]*models.Contract
	byPassport   map[string][]*models.Contract
}

// NewMatcher indexes the contract population by each identifier kind.
func NewMatcher(contracts []*models.Contract) *Matcher {
	m := &Matcher{
		logger:       logger.GetGlobalLogger().WithComponent("payment_matcher"),
		byTaxID:      make(map[string][]*models.Contract),
		byNationalID: make(map[string][]*models.Contract),
		byPassport:   make(map[string][]*models.Contract),
	}
	for _, c := range contracts {
		if c.TaxID != "" {
			m.byTaxID[c.TaxID] = append(m.byTaxID[c.TaxID], c)
		}
		if c.NationalID != "" {
			m.byNationalID[c.NationalID] = append(m.byNationalID[c.NationalID], c)
		}
		if c.Passport != "" {
			m.byPassport[c.Passport] = append(m.byPassport[c.Passport], c)
		}
	}
	return m
}

// Match links each unmatched payment to at most one contract and returns the
// number of payments matched in this pass.
func (m *Matcher) Match(payments []*models.PaymentFact) int {
	matched := 0
	for _, payment := range payments {
		if payment.Matched {
			continue
		}
		contract := m.resolve(payment)
		if contract == nil {
			continue
		}
		payment.Matched = true
		payment.ContractNumber = contract.ContractNumber
		matched++
	}

	m.logger.WithFields(logger.Fields{
		"payments": len(payments),
		"matched":  matched,
	}).Info("Finished payment matching")

	return matched
}

// resolve picks the contract for one payment, or nil to leave it unmatched.
func (m *Matcher) resolve(payment *models.PaymentFact) *models.Contract {
	candidates := m.candidates(payment)
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}

	best := m.bestScored(payment, candidates)
	if best == nil {
		m.logger.WithFields(logger.Fields{
			"identifier": payment.Identifier(),
			"candidates": len(candidates),
		}).Debug("No candidate scored, payment left unmatched")
	}
	return best
}

// candidates looks up contracts by the payment's first populated identifier.
// A later identifier kind is never consulted once an earlier one is present,
// even if the lookup comes back empty.
func (m *Matcher) candidates(payment *models.PaymentFact) []*models.Contract {
	switch {
	case payment.TaxID != "":
		return m.byTaxID[payment.TaxID]
	case payment.NationalID != "":
		return m.byNationalID[payment.NationalID]
	case payment.Passport != "":
		return m.byPassport[payment.Passport]
	}
	return nil
}

// bestScored scores every candidate and returns the top scorer. Candidates
// that all score zero share nothing beyond the identifier, so the payment
// stays unmatched. Equal positive scores are broken by the lowest contract
// number to keep re-runs deterministic under candidate re-ordering.
func (m *Matcher) bestScored(payment *models.PaymentFact, candidates []*models.Contract) *models.Contract {
	bestScore := 0
	var top []*models.Contract

	for _, c := range candidates {
		score := m.score(payment, c)
		switch {
		case score > bestScore:
			bestScore = score
			top = top[:0]
			top = append(top, c)
		case score == bestScore && score > 0:
			top = append(top, c)
		}
	}

	if bestScore == 0 || len(top) == 0 {
		return nil
	}
	if len(top) > 1 {
		sort.Slice(top, func(i, j int) bool {
			return top[i].ContractNumber < top[j].ContractNumber
		})
	}
	return top[0]
}

func (m *Matcher) score(payment *models.PaymentFact, contract *models.Contract) int {
	score := 0
	// An absent contract date carries no information and earns nothing.
	if !contract.ContractDate.IsZero() && !payment.PaymentDate.Before(contract.ContractDate) {
		score += scoreDateCompatible
	}
	if payment.District != "" && strings.EqualFold(payment.District, contract.District) {
		score += scoreDistrictMatch
	}
	if contract.Status == models.StatusActive {
		score += scoreActiveStatus
	}
	return score
}
