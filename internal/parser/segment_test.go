package parser

import "testing"

func resolved(t *testing.T, p IssuerProfile, holder string) *IssuerProfile {
	t.Helper()
	out, err := p.Resolve(holder)
	if err != nil {
		t.Fatalf("resolve %s: %v", p.Issuer, err)
	}
	return out
}

func TestExtract_Bradesco(t *testing.T) {
	p := resolved(t, BradescoProfile(), "MARIA SILVA")

	tests := []struct {
		name      string
		page      string
		pageIndex int
		expected  string
	}{
		{
			name:      "cover page between holder and summary",
			page:      "Fatura Bradesco\nMARIA SILVA\n15/03 UBER TRIP 23,50\nResumo das Despesas\nTotal 23,50",
			pageIndex: 0,
			expected:  "MARIA SILVA\n15/03 UBER TRIP 23,50\n",
		},
		{
			name:      "continuation page between exchange rate and holder total",
			page:      "Cotação Dólar R$ 5,20\n16/03 PADARIA REAL 8,00\nTotal para MARIA SILVA 31,50",
			pageIndex: 2,
			expected:  "Dólar R$ 5,20\n16/03 PADARIA REAL 8,00\n",
		},
		{
			name:      "cover anchors are not used on later pages",
			page:      "MARIA SILVA\n15/03 UBER TRIP 23,50\nResumo das Despesas",
			pageIndex: 1,
			expected:  "MARIA SILVA\n15/03 UBER TRIP 23,50\nResumo das Despesas",
		},
		{
			name:      "missing anchor includes full page",
			page:      "15/03 UBER TRIP 23,50",
			pageIndex: 3,
			expected:  "15/03 UBER TRIP 23,50",
		},
		{
			name:      "end before start yields empty segment",
			page:      "Total para MARIA SILVA 10,00\nDólar R$ 5,20",
			pageIndex: 1,
			expected:  "",
		},
		{
			name:      "empty page",
			page:      "",
			pageIndex: 0,
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.page, tt.pageIndex, p)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtract_Nubank(t *testing.T) {
	p := resolved(t, NubankProfile(), "MARIA SILVA")

	tests := []struct {
		name     string
		page     string
		expected string
	}{
		{
			name:     "collapses whitespace before slicing",
			page:     "Resumo\n\nTRANSAÇÕES\n10   MAR\tSTARBUCKS CAFE  -12,90\nMARIA SILVA\nPágina 2",
			expected: "TRANSAÇÕES 10 MAR STARBUCKS CAFE -12,90 ",
		},
		{
			name:     "missing start anchor contributes nothing",
			page:     "10 MAR STARBUCKS CAFE -12,90 MARIA SILVA",
			expected: "",
		},
		{
			name:     "missing end anchor contributes nothing",
			page:     "TRANSAÇÕES 10 MAR STARBUCKS CAFE -12,90",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.page, 0, p)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtract_UnresolvedHolderIsAbsent(t *testing.T) {
	p := resolved(t, NubankProfile(), "")

	got := Extract("TRANSAÇÕES 10 MAR STARBUCKS CAFE -12,90 MARIA SILVA", 0, p)
	if got != "" {
		t.Errorf("got %q, want empty segment", got)
	}
}
