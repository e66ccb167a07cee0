package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionJSON(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"23.5", `"amount":"23.50"`},
		{"1200", `"amount":"1200.00"`},
		{"-12.9", `"amount":"-12.90"`},
		{"0.999", `"amount":"1.00"`},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			tx := Transaction{
				Date:       time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
				Descriptor: "UBER TRIP",
				Amount:     decimal.RequireFromString(tt.amount),
				Category:   "TRANSPORTE",
			}
			raw, err := json.Marshal(tx)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got := string(raw)
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %s in %s", tt.want, got)
			}
			if !strings.Contains(got, `"descriptor":"UBER TRIP"`) || !strings.Contains(got, `"category":"TRANSPORTE"`) {
				t.Errorf("missing fields in %s", got)
			}
		})
	}
}

func TestTransactionJSONRoundTripAmount(t *testing.T) {
	raw, err := json.Marshal(Transaction{Amount: decimal.RequireFromString("8")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Transaction
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Amount.Equal(decimal.RequireFromString("8.00")) {
		t.Errorf("expected 8.00, got %s", back.Amount)
	}
}
