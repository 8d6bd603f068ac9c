package amount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
		ok   bool
	}{
		{"grouped thousands", "$1.234.567", 1234567, true},
		{"spaced currency", "$ 50.000", 50000, true},
		{"bare grouped", "19.843", 19843, true},
		{"small value", "$50", 50, true},
		{"zero", "$0", 0, false},
		{"empty", "", 0, false},
		{"no digits", "monto", 0, false},
		{"only separators", ".,", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("Parse(%q) = %s, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_DecimalComma(t *testing.T) {
	got, ok := Parse("$1.234,50")
	if !ok {
		t.Fatal("Parse returned ok=false")
	}
	want, _ := decimal.NewFromString("1234.50")
	if !got.Equal(want) {
		t.Errorf("Parse($1.234,50) = %s, want 1234.50", got)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
		ok   bool
	}{
		{
			"transfer amount phrase",
			"Monto transferido:\n$ 19.843",
			19843, true,
		},
		{
			"total phrase",
			"Total: $45.990 gracias por su compra",
			45990, true,
		},
		{
			"currency fallback",
			"se realizó un movimiento por $ 50.000 en tu cuenta",
			50000, true,
		},
		{
			"bare grouped digits in transfer context",
			"Transferencia realizada por 19.843 desde tu cuenta",
			19843, true,
		},
		{
			"below floor rejected",
			"pagaste $50",
			0, false,
		},
		{
			"bare number below bare floor rejected",
			"llamar al anexo 843",
			0, false,
		},
		{
			"no amount",
			"estimado cliente, gracias por preferirnos",
			0, false,
		},
		{
			"first valid match in priority order wins",
			"Monto: $12.500 Total: $99.000",
			12500, true,
		},
		{
			"skips sub-floor match within a pattern",
			"Monto: $50 Monto: $25.000",
			25000, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.in)
			if ok != tt.ok {
				t.Fatalf("Extract(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("Extract(%q) = %s, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtract_CLPSuffix(t *testing.T) {
	got, ok := Extract("pagaste 1.234.567 pesos con tu tarjeta")
	if !ok {
		t.Fatal("Extract returned ok=false")
	}
	if !got.Equal(decimal.NewFromInt(1234567)) {
		t.Errorf("Extract = %s, want 1234567", got)
	}
}
