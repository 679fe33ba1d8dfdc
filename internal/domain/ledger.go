// Package domain defines the core entities for the ledger insights BFA.
// These models are independent of storage and transport and represent the
// canonical data structures exchanged with the analysis core.
package domain

import (
	"fmt"
	"time"
)

// ============================================================
// Transactions
// ============================================================

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TypeEntrada TransactionType = "ENTRADA" // inflow
	TypeSaida   TransactionType = "SAIDA"   // outflow
)

// Category is the classification assigned by the classifier.
type Category string

const (
	CategoryAlimentacao   Category = "Alimentação"
	CategoryDelivery      Category = "Delivery"
	CategoryTransporte    Category = "Transporte"
	CategoryMoradia       Category = "Moradia"
	CategorySaude         Category = "Saúde"
	CategoryEducacao      Category = "Educação"
	CategoryLazer         Category = "Lazer"
	CategoryCompras       Category = "Compras"
	CategoryAssinaturas   Category = "Assinaturas"
	CategoryTarifas       Category = "Tarifas"
	CategoryInvestimentos Category = "Investimentos"
	CategoryPIX           Category = "PIX"
	CategoryTransferencia Category = "Transferência"
	CategorySalario       Category = "Salário"
	CategoryReceitas      Category = "Receitas"
	CategoryOutros        Category = "Outros"
)

// Transaction is a single normalized ledger entry.
// Date is a calendar date (local midnight); a non-midnight clock time is
// kept when the source statement provides one.
type Transaction struct {
	ID                  string          `json:"id"`
	Date                time.Time       `json:"date"`
	Amount              float64         `json:"amount"` // positive = inflow
	Type                TransactionType `json:"type"`
	Description         string          `json:"description"`
	OriginalDescription string          `json:"originalDescription,omitempty"`
	Category            Category        `json:"category,omitempty"`
	Detalhes            string          `json:"detalhes,omitempty"`
	Lancamento          string          `json:"lancamento,omitempty"`
	NumeroDocumento     string          `json:"numeroDocumento,omitempty"`
}

// Validate checks the direction invariant: ENTRADA ⇔ amount ≥ 0.
func (t Transaction) Validate() error {
	switch t.Type {
	case TypeEntrada:
		if t.Amount < 0 {
			return &ErrInvalidTransaction{ID: t.ID, Reason: fmt.Sprintf("ENTRADA with negative amount %.2f", t.Amount)}
		}
	case TypeSaida:
		if t.Amount >= 0 {
			return &ErrInvalidTransaction{ID: t.ID, Reason: fmt.Sprintf("SAIDA with non-negative amount %.2f", t.Amount)}
		}
	default:
		return &ErrInvalidTransaction{ID: t.ID, Reason: fmt.Sprintf("unknown type %q", t.Type)}
	}
	if t.Date.IsZero() {
		return &ErrInvalidTransaction{ID: t.ID, Reason: "missing date"}
	}
	return nil
}

// IsIncome reports whether the transaction is an inflow.
func (t Transaction) IsIncome() bool {
	return t.Type == TypeEntrada
}

// AbsAmount returns the unsigned value of the transaction.
func (t Transaction) AbsAmount() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// ============================================================
// Profile
// ============================================================

// Profile is the read-only snapshot of user settings supplied with a ledger.
type Profile struct {
	InitialBalance   float64   `json:"initialBalance"`
	Salary           float64   `json:"salary"`
	MonthlyBudget    float64   `json:"monthlyBudget,omitempty"` // 0 = derive from salary
	CustomCategories []string  `json:"customCategories,omitempty"`
	Rav4Target       float64   `json:"rav4Target"`
	Rav4TargetDate   time.Time `json:"rav4TargetDate"`
	Rav4StartDate    time.Time `json:"rav4StartDate"`
}

// LedgerSnapshot is the inbound payload of a stateless analysis run.
type LedgerSnapshot struct {
	Transactions []Transaction `json:"transactions"`
	Profile      Profile       `json:"profile"`
	Mode         *ModeState    `json:"mode,omitempty"`
}

// ============================================================
// Aggregates
// ============================================================

// CategoryStat is the per-category aggregate of a transaction set.
type CategoryStat struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Total    float64  `json:"total"` // signed
	Average  float64  `json:"average"`
}

// Totals holds the inflow and outflow sums (both non-negative).
type Totals struct {
	Entradas float64 `json:"entradas"`
	Saidas   float64 `json:"saidas"`
}

// MonthlyTrend shows income and expenses for one calendar month.
type MonthlyTrend struct {
	Month    string  `json:"month"` // 2006-01
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
}
