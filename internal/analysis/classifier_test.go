package analysis_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

func TestClassify(t *testing.T) {
	d := day(2024, 6, 1)
	tests := []struct {
		name string
		tx   domain.Transaction
		want domain.Category
	}{
		{"delivery before restaurant", saida("1", d, 40, "IFOOD *RESTAURANTE", ""), domain.CategoryDelivery},
		{"uber eats is delivery", saida("2", d, 30, "UBER EATS", ""), domain.CategoryDelivery},
		{"uber ride is transport", saida("3", d, 25, "UBER TRIP", ""), domain.CategoryTransporte},
		{"mercado livre is shopping", saida("4", d, 120, "MERCADO LIVRE", ""), domain.CategoryCompras},
		{"supermarket", saida("5", d, 220, "SUPERMERCADO EXTRA", ""), domain.CategoryAlimentacao},
		{"subscription", saida("6", d, 39.9, "NETFLIX.COM", ""), domain.CategoryAssinaturas},
		{"accents are folded", saida("7", d, 12, "PADARIA SÃO JOSÉ", ""), domain.CategoryAlimentacao},
		{"bank fee", saida("8", d, 19.9, "TARIFA PACOTE SERVICOS", ""), domain.CategoryTarifas},
		{"outgoing pix", saida("9", d, 100, "PIX ENVIADO MARIA", ""), domain.CategoryPIX},
		{"unknown outflow", saida("10", d, 10, "XYZ 123", ""), domain.CategoryOutros},
		{"salary", entrada("11", d, 3000, "SALARIO EMPRESA X", ""), domain.CategorySalario},
		{"yield", entrada("12", d, 15, "RENDIMENTO POUPANCA", ""), domain.CategoryInvestimentos},
		{"incoming pix", entrada("13", d, 50, "PIX RECEBIDO JOAO", ""), domain.CategoryPIX},
		{"unknown inflow", entrada("14", d, 80, "REEMBOLSO", ""), domain.CategoryReceitas},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analysis.Classify(tt.tx, nil)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClassify_CustomCategoryWins(t *testing.T) {
	tx := saida("1", day(2024, 6, 1), 90, "PET SHOP AUMIGO", "")
	got := analysis.Classify(tx, []string{"Pet"})
	if got != "Pet" {
		t.Errorf("expected custom category 'Pet', got %q", got)
	}
}

func TestClassify_IsDeterministic(t *testing.T) {
	tx := saida("1", day(2024, 6, 1), 40, "IFOOD *LANCHES", "")
	first := analysis.Classify(tx, nil)
	for i := 0; i < 10; i++ {
		if got := analysis.Classify(tx, nil); got != first {
			t.Fatalf("classification changed between calls: %q vs %q", first, got)
		}
	}
}

func TestIsEmotional(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
		want bool
	}{
		{"delivery", saida("1", day(2024, 6, 1), 40, "IFOOD", domain.CategoryDelivery), true},
		{"late night groceries", saida("2", clock(2024, 6, 1, 23, 30), 80, "SUPERMERCADO", domain.CategoryAlimentacao), true},
		{"midday groceries", saida("3", clock(2024, 6, 1, 12, 0), 80, "SUPERMERCADO", domain.CategoryAlimentacao), false},
		{"no clock at midnight", saida("4", day(2024, 6, 1), 80, "SUPERMERCADO", domain.CategoryAlimentacao), false},
		{"inflow never emotional", entrada("5", clock(2024, 6, 1, 23, 0), 80, "PIX RECEBIDO", domain.CategoryPIX), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := analysis.IsEmotional(tt.tx, th); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClassifyTransaction(t *testing.T) {
	c := analysis.ClassifyTransaction(saida("1", day(2024, 6, 1), 40, "RAPPI", ""), nil, th)
	if c.Category != domain.CategoryDelivery || !c.IsEmotional {
		t.Errorf("expected Delivery/emotional, got %+v", c)
	}
}

func TestNormalize_RejectsSignMismatch(t *testing.T) {
	bad := domain.Transaction{ID: "bad", Date: day(2024, 6, 1), Amount: -10, Type: domain.TypeEntrada, Description: "X"}
	_, err := analysis.Normalize([]domain.Transaction{bad}, nil)
	if err == nil {
		t.Fatal("expected error for ENTRADA with negative amount")
	}
	var invalid *domain.ErrInvalidTransaction
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTransaction, got %T", err)
	}
	if invalid.ID != "bad" {
		t.Errorf("expected error to name transaction 'bad', got %q", invalid.ID)
	}
}

func TestNormalize_SortsAndClassifies(t *testing.T) {
	in := []domain.Transaction{
		saida("c", day(2024, 6, 3), 10, "NETFLIX", ""),
		saida("a", day(2024, 6, 1), 10, "UBER", ""),
		saida("b", day(2024, 6, 1), 10, "IFOOD", domain.CategoryLazer),
	}
	out, err := analysis.Normalize(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("expected stable date order [a b c], got %v", ids)
	}
	if out[0].Category != domain.CategoryTransporte {
		t.Errorf("expected empty category to be classified, got %q", out[0].Category)
	}
	if out[1].Category != domain.CategoryLazer {
		t.Errorf("expected existing category to be kept, got %q", out[1].Category)
	}
	if in[0].ID != "c" {
		t.Error("expected input slice to be left untouched")
	}
}
