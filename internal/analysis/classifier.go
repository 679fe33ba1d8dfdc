package analysis

import (
	"sort"
	"strings"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Classifier
// ============================================================

// Classification is the classifier output for one transaction.
type Classification struct {
	Category    domain.Category `json:"category"`
	IsEmotional bool            `json:"isEmotional"`
}

type categoryRule struct {
	category domain.Category
	keywords []string
}

// Order matters: the first rule that matches wins, so the more specific
// merchants ("uber eats", "mercado livre", "amazon prime") come before
// the generic words they contain.
var outflowRules = []categoryRule{
	{domain.CategoryTarifas, []string{"tarifa", "anuidade", "iof", "juros", "multa", "encargo", "cesta de servicos", "taxa de manutencao", "mensalidade pacote"}},
	{domain.CategoryDelivery, []string{"ifood", "rappi", "uber eats", "ubereats", "james delivery", "ze delivery", "aiqfome", "delivery"}},
	{domain.CategoryAssinaturas, []string{"netflix", "spotify", "amazon prime", "prime video", "disney", "hbo", "max.com", "globoplay", "youtube premium", "deezer", "icloud", "google one", "assinatura"}},
	{domain.CategoryCompras, []string{"mercado livre", "mercadolivre", "shopee", "shein", "aliexpress", "amazon", "magalu", "magazine luiza", "americanas", "casas bahia", "renner", "riachuelo", "loja"}},
	{domain.CategoryAlimentacao, []string{"supermercado", "mercado", "padaria", "restaurante", "lanchonete", "acougue", "hortifruti", "atacadao", "assai", "carrefour", "pao de acucar", "cafe"}},
	{domain.CategoryTransporte, []string{"uber", "99app", "99 pop", "posto", "combustivel", "gasolina", "estacionamento", "pedagio", "metro", "onibus", "bilhete unico"}},
	{domain.CategoryMoradia, []string{"aluguel", "condominio", "energia", "enel", "cemig", "sabesp", "agua", "internet", "vivo fibra", "claro", "iptu", "comgas"}},
	{domain.CategorySaude, []string{"farmacia", "drogaria", "drogasil", "droga raia", "hospital", "clinica", "laboratorio", "plano de saude", "unimed", "dentista", "medico"}},
	{domain.CategoryEducacao, []string{"escola", "faculdade", "universidade", "curso", "udemy", "alura", "livraria", "mensalidade escolar"}},
	{domain.CategoryLazer, []string{"cinema", "ingresso", "show", "teatro", "bar ", "balada", "steam", "playstation", "xbox", "viagem", "hotel", "airbnb"}},
	{domain.CategoryInvestimentos, []string{"aplicacao", "investimento", "tesouro", "cdb", "corretora", "poupanca"}},
	{domain.CategoryPIX, []string{"pix"}},
	{domain.CategoryTransferencia, []string{"transferencia", "ted ", "doc "}},
}

var inflowRules = []categoryRule{
	{domain.CategorySalario, []string{"salario", "folha", "proventos", "remuneracao", "pagamento de salario", "adiantamento salarial"}},
	{domain.CategoryInvestimentos, []string{"rendimento", "resgate", "dividendo", "juros sobre capital"}},
	{domain.CategoryPIX, []string{"pix"}},
	{domain.CategoryTransferencia, []string{"transferencia", "ted ", "doc "}},
}

var emotionalCategories = map[domain.Category]bool{
	domain.CategoryDelivery: true,
	domain.CategoryLazer:    true,
	domain.CategoryCompras:  true,
}

var emotionalKeywords = []string{
	"ifood", "shopee", "shein", "aliexpress", "doceria", "chocolate", "sorvete",
	"cerveja", "bar ", "balada", "steam", "jogo", "aposta", "bet365",
}

// classificationText joins every descriptive field of a transaction,
// folded, with a trailing space so "bar " style keywords match at the end.
func classificationText(tx domain.Transaction) string {
	parts := []string{tx.Description, tx.OriginalDescription, tx.Detalhes, tx.Lancamento}
	return fold(strings.Join(parts, " ")) + " "
}

// Classify assigns a category from the transaction text. Custom labels from
// the profile win when they occur in the text; unmatched rows fall into
// Outros. Classification never fails.
func Classify(tx domain.Transaction, customCategories []string) domain.Category {
	text := classificationText(tx)

	for _, label := range customCategories {
		if f := fold(label); f != "" && strings.Contains(text, f) {
			return domain.Category(label)
		}
	}

	rules := outflowRules
	if tx.IsIncome() {
		rules = inflowRules
	}
	for _, rule := range rules {
		if _, ok := containsAny(text, rule.keywords); ok {
			return rule.category
		}
	}
	if tx.IsIncome() {
		return domain.CategoryReceitas
	}
	return domain.CategoryOutros
}

// IsEmotional flags impulse purchases: outflows in an emotional category,
// matching an emotional keyword, or made late at night.
func IsEmotional(tx domain.Transaction, th Thresholds) bool {
	if tx.Type != domain.TypeSaida {
		return false
	}
	if emotionalCategories[tx.Category] {
		return true
	}
	if _, ok := containsAny(classificationText(tx), emotionalKeywords); ok {
		return true
	}
	return isLateNight(tx.Date, th)
}

// ClassifyTransaction returns the category and the emotional flag together.
// An already assigned category is kept.
func ClassifyTransaction(tx domain.Transaction, customCategories []string, th Thresholds) Classification {
	if tx.Category == "" {
		tx.Category = Classify(tx, customCategories)
	}
	return Classification{Category: tx.Category, IsEmotional: IsEmotional(tx, th)}
}

// Normalize is the inbound boundary of the core. It rejects rows that break
// the type/sign invariant, classifies rows without a category, and returns
// a new slice ordered by date (stable for same-day rows).
func Normalize(txs []domain.Transaction, customCategories []string) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		if tx.Category == "" {
			tx.Category = Classify(tx, customCategories)
		}
		out[i] = tx
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// isTransfer reports whether the transaction is a PIX or bank transfer.
func isTransfer(tx domain.Transaction) bool {
	if tx.Category == domain.CategoryPIX || tx.Category == domain.CategoryTransferencia {
		return true
	}
	_, ok := containsAny(classificationText(tx), []string{"pix", "transferencia", "ted "})
	return ok
}
