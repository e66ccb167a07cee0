package pipeline

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-categorizer/internal/models"
)

// CategoryTotal is the signed sum of one category's amounts.
type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// MarshalJSON writes the total with exactly two decimal places.
func (ct CategoryTotal) MarshalJSON() ([]byte, error) {
	type plain CategoryTotal
	return json.Marshal(struct {
		plain
		Total string `json:"total"`
	}{plain(ct), ct.Total.StringFixed(2)})
}

// Totals sums transactions per category, sorted by category name.
func Totals(txs []models.Transaction) []CategoryTotal {
	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range txs {
		ct, ok := byCategory[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = ct
		}
		ct.Count++
		ct.Total = ct.Total.Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
