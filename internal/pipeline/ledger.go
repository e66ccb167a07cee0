package pipeline

import (
	"github.com/insightdelivered/statement-categorizer/internal/models"
	"github.com/insightdelivered/statement-categorizer/internal/parser"
)

// Ledger is the run's accumulated result set. With run-wide dedup a
// transaction equal to an admitted one on (date, descriptor, amount,
// category) is dropped; otherwise every transaction is kept.
type Ledger struct {
	dedup bool
	seen  map[string]struct{}
	items []models.Transaction
}

// NewLedger returns an empty ledger for the given dedup scope.
func NewLedger(scope parser.DedupScope) *Ledger {
	return &Ledger{
		dedup: scope == parser.DedupRun,
		seen:  make(map[string]struct{}),
	}
}

// Admit appends t unless it duplicates an admitted transaction, and reports
// whether it was appended.
func (l *Ledger) Admit(t models.Transaction) bool {
	if l.dedup {
		key := t.Key()
		if _, ok := l.seen[key]; ok {
			return false
		}
		l.seen[key] = struct{}{}
	}
	l.items = append(l.items, t)
	return true
}

// Len returns the number of admitted transactions.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Transactions returns the admitted transactions in admission order.
func (l *Ledger) Transactions() []models.Transaction {
	out := make([]models.Transaction, len(l.items))
	copy(out, l.items)
	return out
}
