package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one categorized card statement entry.
// It is built once by the normalizer and classifier and never mutated afterwards.
type Transaction struct {
	Date       time.Time       `json:"date"`
	Descriptor string          `json:"descriptor"`
	Amount     decimal.Decimal `json:"amount"` // negative for credits and refunds
	Category   string          `json:"category"`
}

// MarshalJSON writes the amount with exactly two decimal places.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount string `json:"amount"`
	}{plain(t), t.Amount.StringFixed(2)})
}

// Key returns the exact-tuple identity used for deduplication.
func (t Transaction) Key() string {
	return t.Date.Format("2006-01-02") + "|" + t.Descriptor + "|" + t.Amount.StringFixed(2) + "|" + t.Category
}

// RawTriple is what the record pattern captured, before normalization.
type RawTriple struct {
	Date       string
	Descriptor string
	Amount     string
}

// IssuerType identifies a supported statement layout.
type IssuerType string

const (
	IssuerBradesco IssuerType = "bradesco"
	IssuerNubank   IssuerType = "nubank"
)

// DocumentStats summarizes what the pipeline did with one input document.
type DocumentStats struct {
	Name       string `json:"name"`
	Pages      int    `json:"pages"`
	Extracted  int    `json:"extracted"`
	Excluded   int    `json:"excluded"`
	Rejected   int    `json:"rejected"`
	Duplicates int    `json:"duplicates"`
	Admitted   int    `json:"admitted"`
	Err        string `json:"error,omitempty"`
}

// RunResult is the accumulated output of one pipeline run.
type RunResult struct {
	RunID        string          `json:"runId"`
	Issuer       IssuerType      `json:"issuer"`
	Transactions []Transaction   `json:"transactions"`
	Documents    []DocumentStats `json:"documents"`
}
