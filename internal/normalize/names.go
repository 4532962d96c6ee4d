package normalize

// ProductKeys are the keys under which each company lists its products, in the
// order they are read.
var ProductKeys = []string{
	"personalAccounts",
	"businessAccounts",
	"personalCreditCards",
	"businessCreditCards",
	"personalLoans",
	"businessLoans",
	"personalFinancings",
	"businessFinancings",
	"personalInvoiceFinancings",
	"businessInvoiceFinancings",
	"personalUnarrangedAccountOverdraft",
	"businessUnarrangedAccountOverdraft",
}

const (
	CategoriaOutros      = "Outros"
	NomeAdiantamento     = "Adiantamento a Depositante"
	TipoAdiantamento     = "ADP"
	TipoUnknown          = "UNKNOWN"
	keyPersonalOverdraft = "personalUnarrangedAccountOverdraft"
	keyBusinessOverdraft = "businessUnarrangedAccountOverdraft"
	keyPersonalCards     = "personalCreditCards"
	keyBusinessCards     = "businessCreditCards"
)

var categorias = map[string]string{
	"personalAccounts":                   "Conta Corrente",
	"businessAccounts":                   "Conta Corrente",
	"personalCreditCards":                "Cartão de Crédito",
	"businessCreditCards":                "Cartão de Crédito",
	"personalLoans":                      "Empréstimo",
	"businessLoans":                      "Empréstimo",
	"personalFinancings":                 "Financiamento",
	"businessFinancings":                 "Financiamento",
	"personalInvoiceFinancings":          "Antecipação de Recebíveis",
	"businessInvoiceFinancings":          "Antecipação de Recebíveis",
	"personalUnarrangedAccountOverdraft": "Adiantamento a Depositante",
	"businessUnarrangedAccountOverdraft": "Adiantamento a Depositante",
}

// Categoria returns the category of the products listed under `key`.
func Categoria(key string) string {
	categoria, ok := categorias[key]
	if !ok {
		return CategoriaOutros
	}
	return categoria
}

func isOverdraft(key string) bool {
	return key == keyPersonalOverdraft || key == keyBusinessOverdraft
}

func isCreditCard(key string) bool {
	return key == keyPersonalCards || key == keyBusinessCards
}

// nomeProdutos maps the product types of BCB Circular n. 4.015 to their display
// names, plus the off-standard types some participants publish.
var nomeProdutos = map[string]string{
	"CONTA_DEPOSITO_A_VISTA":                                     "Conta corrente",
	"CONTA_POUPANCA":                                             "Conta poupança",
	"CONTA_PAGAMENTO_PRE_PAGA":                                   "Conta de pagamento pré-paga",
	"DESCONTO_DUPLICATAS":                                        "Desconto de duplicatas",
	"DESCONTO_CHEQUES":                                           "Desconto de cheques",
	"ANTECIPACAO_FATURA_CARTAO_CREDITO":                          "Antecipação de fatura de cartão de crédito",
	"OUTROS_DIREITOS_CREDITORIOS_DESCONTADOS":                    "Outros direitos creditórios descontados",
	"OUTROS_TITULOS_DESCONTADOS":                                 "Outros títulos descontados",
	"EMPRESTIMO_CREDITO_PESSOAL_CONSIGNADO":                      "Crédito pessoal consignado",
	"EMPRESTIMO_CREDITO_PESSOAL_SEM_CONSIGNACAO":                 "Crédito pessoal sem consignação",
	"EMPRESTIMO_HOME_EQUITY":                                     "Home equity",
	"EMPRESTIMO_MICROCREDITO_PRODUTIVO_ORIENTADO":                "Microcrédito produtivo orientado",
	"EMPRESTIMO_CHEQUE_ESPECIAL":                                 "Cheque especial",
	"EMPRESTIMO_CONTA_GARANTIDA":                                 "Conta garantida",
	"EMPRESTIMO_CAPITAL_GIRO_PRAZO_VENCIMENTO_ATE_365_DIAS":      "Capital de giro com prazo de vencimento até 365 dias",
	"EMPRESTIMO_CAPITAL_GIRO_PRAZO_VENCIMENTO_SUPERIOR_365_DIAS": "Capital de giro com prazo de vencimento superior a 365 dias",
	"EMPRESTIMO_CAPITAL_GIRO_ROTATIVO":                           "Capital de giro rotativo",
	"FINANCIAMENTO_AQUISICAO_BENS_VEICULOS_AUTOMOTORES":          "Aquisição de bens - Veículos automotores",
	"FINANCIAMENTO_AQUISICAO_BENS_OUTROS_BENS":                   "Aquisição de bens - Outros bens",
	"FINANCIAMENTO_MICROCREDITO":                                 "Financiamento microcrédito",
	"FINANCIAMENTO_RURAL_CUSTEIO":                                "Financiamento rural - Custeio",
	"FINANCIAMENTO_RURAL_INVESTIMENTO":                           "Financiamento rural - Investimento",
	"FINANCIAMENTO_RURAL_COMERCIALIZACAO":                        "Financiamento rural - Comercialização",
	"FINANCIAMENTO_RURAL_INDUSTRIALIZACAO":                       "Financiamento rural - Industrialização",
	"FINANCIAMENTO_IMOBILIARIO_SISTEMA_FINANCEIRO_HABITACAO_SFH": "Financiamento imobiliário - Sistema Financeiro da Habitação (SFH)",
	"FINANCIAMENTO_IMOBILIARIO_SISTEMA_FINANCEIRO_HABITACAO_SFI": "Financiamento imobiliário - Sistema Financeiro Imobiliário (SFI)",

	// off-standard
	"CONTA_PAGAMENTO":                                            "Conta salário",
	"EMPRESTIMO_CREDITO_PESSOAL":                                 "Crédito pessoal sem consignação",
	"EMPRESTIMO_CREDITO_PESSOAL_NAO_CONSIGNADO":                  "Crédito pessoal sem consignação",
	"FINANCIAMENTO_IMOBILIARIO_SISTEMA_FINANCEIRO_HABITACAO-SFH": "Financiamento imobiliário - Sistema Financeiro da Habitação (SFH)",
	"FINANCIAMENTO_IMOBILIARIO_SISTEMA_FINANCEIRO_HABITACAO-SFI": "Financiamento imobiliário - Sistema Financeiro Imobiliário (SFI)",
}

// NomeProduto returns the display name of a product type, false for unknown types.
func NomeProduto(tipo string) (string, bool) {
	nome, ok := nomeProdutos[tipo]
	return nome, ok
}
