package rules

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dvloznov/mail-ledger/internal/domain"
)

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name  string
		typ   RuleType
		in    string
		want  string
		valid bool
	}{
		{"lowercased", TypeSender, "Banco.Estado@CL", "banco.estado@cl", true},
		{"whitespace collapsed", TypeKeyword, "  pago   automático ", "pago automático", true},
		{"fullwidth folded", TypeKeyword, "ｂａｎｃｏ", "banco", true},
		{"sender keeps address chars", TypeSender, "avisos+tx@banco.cl", "avisos+tx@banco.cl", true},
		{"keyword strips address chars", TypeKeyword, "pago@banco", "pagobanco", true},
		{"accents kept", TypeKeyword, "Depósito", "depósito", true},
		{"symbols stripped", TypeKeyword, "pago $$$ total!!", "pago total", true},
		{"too short", TypeKeyword, "a", "", false},
		{"only symbols", TypeKeyword, "$$$", "", false},
		{"empty", TypeSender, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SanitizeValue(tt.typ, tt.in)
			if ok != tt.valid {
				t.Fatalf("SanitizeValue(%q) ok = %v, want %v", tt.in, ok, tt.valid)
			}
			if got != tt.want {
				t.Errorf("SanitizeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeValue_Truncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	got, ok := SanitizeValue(TypeKeyword, long)
	if !ok {
		t.Fatal("SanitizeValue rejected long value")
	}
	if len([]rune(got)) != MaxRuleValueLen {
		t.Errorf("len = %d, want %d", len([]rune(got)), MaxRuleValueLen)
	}
}

func TestAddRule(t *testing.T) {
	s := DefaultScanSettings()

	rule, err := s.AddRule(TypeSender, "  Avisos@Banco.CL ")
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	if rule.Value != "avisos@banco.cl" || !rule.Enabled || rule.ID == "" {
		t.Errorf("unexpected rule: %+v", rule)
	}
	if len(s.CustomSenders) != 1 {
		t.Fatalf("CustomSenders len = %d", len(s.CustomSenders))
	}

	if _, err := s.AddRule(TypeSender, "AVISOS@banco.cl"); !errors.Is(err, ErrDuplicateRule) {
		t.Errorf("duplicate err = %v, want ErrDuplicateRule", err)
	}
	if _, err := s.AddRule(TypeKeyword, "!"); !errors.Is(err, ErrInvalidRuleValue) {
		t.Errorf("invalid err = %v, want ErrInvalidRuleValue", err)
	}
	if _, err := s.AddRule(RuleType("bogus"), "valor"); !errors.Is(err, ErrUnknownRuleType) {
		t.Errorf("unknown type err = %v, want ErrUnknownRuleType", err)
	}
}

func TestAddRule_ListCapacity(t *testing.T) {
	s := DefaultScanSettings()
	for i := 0; i < MaxRulesPerList; i++ {
		if _, err := s.AddRule(TypeKeyword, fmt.Sprintf("palabra%03d", i)); err != nil {
			t.Fatalf("AddRule %d: %v", i, err)
		}
	}
	if _, err := s.AddRule(TypeKeyword, "desborde"); !errors.Is(err, ErrListFull) {
		t.Errorf("err = %v, want ErrListFull", err)
	}
}

func TestRemoveAndToggleRule(t *testing.T) {
	s := DefaultScanSettings()
	r1, _ := s.AddRule(TypeSender, "banco uno")
	r2, _ := s.AddRule(TypeExcludedSubject, "promocion")

	if err := s.ToggleRule(r2.ID); err != nil {
		t.Fatalf("ToggleRule: %v", err)
	}
	if s.ExcludedSubjects[0].Enabled {
		t.Error("rule still enabled after toggle")
	}

	if err := s.RemoveRule(r1.ID); err != nil {
		t.Fatalf("RemoveRule: %v", err)
	}
	if len(s.CustomSenders) != 0 {
		t.Errorf("CustomSenders len = %d after remove", len(s.CustomSenders))
	}

	if err := s.RemoveRule("missing"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("remove missing err = %v", err)
	}
	if err := s.ToggleRule("missing"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("toggle missing err = %v", err)
	}
}

func TestSetEnabledCategories(t *testing.T) {
	s := DefaultScanSettings()

	err := s.SetEnabledCategories([]domain.EventCategory{
		domain.CategoryCard, "bogus", domain.CategoryCard, domain.CategoryIncome,
	})
	if err != nil {
		t.Fatalf("SetEnabledCategories: %v", err)
	}
	if len(s.EnabledCategories) != 2 {
		t.Errorf("EnabledCategories = %v", s.EnabledCategories)
	}
	if !s.CategoryEnabled(domain.CategoryCard) || s.CategoryEnabled(domain.CategoryTransfer) {
		t.Error("CategoryEnabled mismatch")
	}

	if err := s.SetEnabledCategories(nil); err == nil {
		t.Error("empty categories accepted")
	}
	if len(s.EnabledCategories) != 2 {
		t.Error("failed set mutated categories")
	}
}

func TestNormalize(t *testing.T) {
	s := ScanSettings{
		Keywords: []EmailRule{
			{ID: "k1", Value: "  Pago  Automático ", Enabled: true},
			{ID: "k2", Value: "pago automático", Enabled: true},
			{ID: "k3", Value: "$$$", Enabled: true},
			{Value: "cargo", Enabled: true},
		},
		DaysToScan:        0,
		EnabledCategories: []domain.EventCategory{"bogus"},
	}
	s.Normalize()

	if len(s.Keywords) != 2 {
		t.Fatalf("Keywords = %+v", s.Keywords)
	}
	if s.Keywords[0].Value != "pago automático" || s.Keywords[1].Value != "cargo" {
		t.Errorf("Keywords = %+v", s.Keywords)
	}
	if s.Keywords[1].ID == "" {
		t.Error("missing ID not regenerated")
	}
	if s.DaysToScan != DefaultDaysToScan {
		t.Errorf("DaysToScan = %d", s.DaysToScan)
	}
	if len(s.EnabledCategories) != len(domain.AllCategories()) {
		t.Errorf("EnabledCategories = %v", s.EnabledCategories)
	}

	s.DaysToScan = 9999
	s.Normalize()
	if s.DaysToScan != MaxDaysToScan {
		t.Errorf("DaysToScan = %d, want %d", s.DaysToScan, MaxDaysToScan)
	}
}

func TestAllowedSenders(t *testing.T) {
	s := DefaultScanSettings()
	r, _ := s.AddRule(TypeSender, "mibanco")
	s.ToggleRule(r.ID)
	s.AddRule(TypeSender, "otrobanco")

	got := s.AllowedSenders()
	if len(got) != len(DefaultFinancialSenders)+1 {
		t.Errorf("AllowedSenders len = %d", len(got))
	}

	s.UseDefaultSenders = false
	got = s.AllowedSenders()
	if len(got) != 1 || got[0] != "otrobanco" {
		t.Errorf("AllowedSenders = %v", got)
	}
}

func TestEngineEvaluate(t *testing.T) {
	s := DefaultScanSettings()
	s.AddRule(TypeSender, "cajavecina")
	s.AddRule(TypeKeyword, "peaje")
	s.AddRule(TypeExcludedSender, "ofertas@santander")
	s.AddRule(TypeExcludedSubject, "resumen semanal")
	s.AddRule(TypeExcludedKeyword, "publicidad")
	disabled, _ := s.AddRule(TypeExcludedKeyword, "descuento")
	s.ToggleRule(disabled.ID)

	e := NewEngine(s)

	tests := []struct {
		name    string
		sender  string
		subject string
		body    string
		allowed bool
		reason  string
	}{
		{
			"excluded sender beats default sender",
			"Ofertas@Santander.cl", "Compra aprobada", "por $10.000",
			false, "excluded sender: ofertas@santander",
		},
		{
			"excluded subject",
			"avisos@santander.cl", "Tu Resumen Semanal", "movimientos",
			false, "excluded subject: resumen semanal",
		},
		{
			"excluded keyword in body",
			"avisos@santander.cl", "Compra aprobada", "contiene Publicidad",
			false, "excluded keyword: publicidad",
		},
		{
			"disabled exclusion ignored, default sender allows",
			"avisos@santander.cl", "Gran descuento", "compra",
			true, "default sender: santander",
		},
		{
			"custom sender allows",
			"pagos@cajavecina.cl", "Giro realizado", "por $5.000",
			true, "sender rule: cajavecina",
		},
		{
			"keyword rule never admits an unknown sender",
			"noreply@autopista.cl", "Cobro TAG", "pago de peaje electrónico",
			false, "sender not allowed",
		},
		{
			"unknown sender with transaction-looking body",
			"spammer@evil.example", "Aviso", "Transferencia realizada por $19.843",
			false, "sender not allowed",
		},
		{
			"unknown sender denied",
			"noreply@desconocido.cl", "Hola", "sin contenido financiero",
			false, "sender not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Evaluate(tt.sender, tt.subject, tt.body)
			if v.Allowed != tt.allowed || v.Reason != tt.reason {
				t.Errorf("Evaluate = %+v, want allowed=%v reason=%q", v, tt.allowed, tt.reason)
			}
		})
	}
}
