package ledger

import (
	"github.com/juev/envelope/internal/ast"
)

// Weight returns the amount a posting contributes to its transaction's
// balance: the price-converted value when a price is attached, otherwise
// the units.
func Weight(p *ast.Posting) (ast.Amount, bool) {
	if p.Amount == nil {
		return ast.Amount{}, false
	}
	if p.Price == nil {
		return *p.Amount, true
	}

	quantity := p.Price.Amount.Quantity
	if !p.Price.IsTotal {
		quantity = quantity.Mul(p.Amount.Quantity.Abs())
	}
	if p.Amount.Quantity.IsNegative() {
		quantity = quantity.Neg()
	}
	return ast.Amount{Quantity: quantity, Commodity: p.Price.Amount.Commodity}, true
}

// Interpolate fills in the single posting without an amount so the
// transaction balances. One posting is produced per residual commodity.
// Transactions with more than one elided amount are returned unchanged.
func Interpolate(tx ast.Transaction) ast.Transaction {
	inferredCount, inferredIdx := countInferredPostings(tx.Postings)
	if inferredCount != 1 {
		return tx
	}

	residual := sumWeights(tx.Postings)
	inferred := tx.Postings[inferredIdx]

	postings := make([]ast.Posting, 0, len(tx.Postings)+len(residual))
	postings = append(postings, tx.Postings[:inferredIdx]...)
	for _, commodity := range residual.Commodities() {
		quantity := residual[commodity]
		if quantity.IsZero() {
			continue
		}
		p := inferred
		p.Amount = &ast.Amount{Quantity: quantity.Neg(), Commodity: commodity, Range: inferred.Range}
		postings = append(postings, p)
	}
	postings = append(postings, tx.Postings[inferredIdx+1:]...)

	tx.Postings = postings
	return tx
}

func countInferredPostings(postings []ast.Posting) (count int, lastIdx int) {
	lastIdx = -1
	for i, p := range postings {
		if p.Amount == nil {
			count++
			lastIdx = i
		}
	}
	return
}

func sumWeights(postings []ast.Posting) Inventory {
	balances := make(Inventory)
	for i := range postings {
		w, ok := Weight(&postings[i])
		if !ok {
			continue
		}
		balances.Add(w.Commodity, w.Quantity)
	}
	return balances
}
