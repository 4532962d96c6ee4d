package normalize

import (
	"openbankingbr/internal/components/telemetry"
	"openbankingbr/internal/model"
	"openbankingbr/internal/openbanking"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

const directoryEntry = `{
	"OrganisationId": "a9b3c2d1-0000-4000-8000-000000000001",
	"OrganisationName": "Banco Exemplo S.A.",
	"RegistrationNumber": "00.000.000/0001-91",
	"RegistrationId": "00000000",
	"AuthorisationServers": [
		{
			"ApiResources": [
				{
					"ApiFamilyType": "channels",
					"ApiDiscoveryEndpoints": [
						{"ApiEndpoint": "https://api.exemplo.com.br/open-banking/channels/v1/branches"},
						{"ApiEndpoint": "https://api.exemplo.com.br/open-banking/channels/v1/electronic-channels"}
					]
				},
				{
					"ApiFamilyType": "products-services",
					"ApiDiscoveryEndpoints": [
						{"ApiEndpoint": "https://api.exemplo.com.br/open-banking/products-services/v1/personal-accounts"},
						{"ApiEndpoint": 42}
					]
				}
			]
		},
		{
			"ApiResources": [
				{
					"ApiDiscoveryEndpoints": [
						{"ApiEndpoint": "https://api.exemplo.com.br/open-banking/channels/v1/branches"}
					]
				}
			]
		}
	]
}`

func TestParticipant(t *testing.T) {
	n := New(telemetry.NewRecorder())

	p, ok := n.Participant(parseObject(t, directoryEntry))
	require.True(t, ok)
	require.Equal(t, "a9b3c2d1-0000-4000-8000-000000000001", p.ID)
	require.Equal(t, "Banco Exemplo S.A.", p.Name)
	require.Equal(t, ptr(int64(191)), p.CNPJ)
	require.Equal(t, "https://api.exemplo.com.br", p.BaseURL)
	require.Equal(t, []string{
		"https://api.exemplo.com.br/open-banking/channels/v1/branches",
		"https://api.exemplo.com.br/open-banking/channels/v1/electronic-channels",
		"https://api.exemplo.com.br/open-banking/products-services/v1/personal-accounts",
	}, p.Endpoints)

	testCases := []struct {
		name   string
		raw    string
		ok     bool
		cnpj   *int64
		nEndps int
	}{
		{name: "no id", raw: `{"OrganisationName": "Sem Id"}`, ok: false},
		{name: "na id", raw: `{"OrganisationId": "NA"}`, ok: false},
		{name: "short cnpj", raw: `{"OrganisationId": "x", "RegistrationNumber": "191"}`, ok: true},
		{name: "no servers", raw: `{"OrganisationId": "x", "RegistrationNumber": "60746948000112"}`, ok: true, cnpj: ptr(int64(60746948000112))},
		{name: "servers not a list", raw: `{"OrganisationId": "x", "AuthorisationServers": {}}`, ok: true},
	}
	for _, test := range testCases {
		p, ok := n.Participant(parseObject(t, test.raw))
		require.Equal(t, test.ok, ok, test.name)
		if !ok {
			continue
		}
		require.Equal(t, test.cnpj, p.CNPJ, test.name)
		require.Len(t, p.Endpoints, test.nEndps, test.name)
		require.Empty(t, p.BaseURL, test.name)
	}
}

const branchesPage = `{
	"brand": {
		"name": "Exemplo",
		"companies": [
			{
				"name": "Banco Exemplo S.A.",
				"cnpjNumber": "00000000000191",
				"branches": [
					{
						"identification": {"type": "AGENCIA", "code": "3006", "checkDigit": "NA", "name": "Centro"},
						"postalAddress": {
							"address": "Av. Paulista, 1000",
							"additionalInfo": "NA",
							"districtName": "Bela Vista",
							"townName": "São Paulo",
							"ibgeCode": "3550308",
							"countrySubDivision": "SP",
							"postCode": "01310-100",
							"geographicCoordinates": {"latitude": "-23,5614", "longitude": -46.6559}
						},
						"availability": {"isPublicAccessAllowed": true},
						"phones": [
							{"type": "MOVEL", "countryCallingCode": "55", "areaCode": "11", "number": "99999-0000"},
							{"type": "FIXO", "countryCallingCode": "55", "areaCode": "11", "number": "3000-0000"}
						],
						"services": [{"code": "SAQUE", "name": "Saque"}, {"name": "Sem codigo"}]
					},
					{
						"identification": {"code": "30-35", "checkDigit": "1"},
						"postalAddress": {
							"countrySubDivision": "São Paulo",
							"postCode": "123",
							"ibgeCode": "35503080",
							"geographicCoordinates": {"latitude": -123.0, "longitude": 200}
						},
						"phones": [
							{"type": "FIXO", "number": "0"},
							{"type": "MOVEL", "areaCode": "21", "number": "988887777"}
						]
					},
					{
						"identification": {"code": "NA", "name": "Sem codigo"}
					},
					{
						"identification": {"code": 3006, "name": "Centro duplicado"}
					}
				]
			},
			{
				"name": "Financeira sem agencias"
			}
		]
	}
}`

func TestAgencias(t *testing.T) {
	tel := telemetry.NewRecorder()
	n := New(tel)

	pages := []openbanking.Page{{
		Endpoint: "https://api.exemplo.com.br/open-banking/channels/v1/branches",
		Data:     parseObject(t, branchesPage),
	}}
	agencias := n.Agencias(pages)

	expect := []model.Agencia{
		{
			Seq:           1,
			Endpoint:      "https://api.exemplo.com.br/open-banking/channels/v1/branches",
			Tipo:          ptr("AGENCIA"),
			Codigo:        3006,
			Nome:          ptr("Centro"),
			Telefone:      ptr("551130000000"),
			Endereco:      ptr("Av. Paulista, 1000"),
			Bairro:        ptr("Bela Vista"),
			Cidade:        ptr("São Paulo"),
			UF:            ptr("SP"),
			CEP:           ptr("01310100"),
			CodigoIBGE:    ptr("3550308"),
			Latitude:      ptr(-23.5614),
			Longitude:     ptr(-46.6559),
			Servicos:      []string{"SAQUE"},
			AcessoPublico: true,
		},
		{
			Seq:               2,
			Endpoint:          "https://api.exemplo.com.br/open-banking/channels/v1/branches",
			Codigo:            3035,
			DigitoVerificador: ptr("1"),
			Telefone:          ptr("21988887777"),
			Servicos:          []string{},
		},
	}
	diff := cmp.Diff(expect, agencias)
	require.Empty(t, diff)

	require.Len(t, tel.Reports("warning", report_normalizer_agencia), 3)
	// uf, cep, ibge, latitude and longitude of the second branch
	require.Len(t, tel.Reports("debug", "dropped field"), 5)
}

const accountsPage = `{
	"brand": {
		"companies": [
			{
				"name": "Banco Exemplo S.A.",
				"personalAccounts": [
					{
						"type": "CONTA_DEPOSITO_A_VISTA",
						"fees": {
							"priorityServices": [
								{
									"name": "Confecção de cadastro para início de relacionamento",
									"code": "CADASTRO",
									"chargingTriggerInfo": "Realização de pesquisa em serviços de proteção ao crédito",
									"prices": [
										{"interval": "1_FAIXA", "value": "0.00", "customers": {"rate": "0.25"}},
										{"interval": "2_FAIXA", "value": "15,00", "customers": {"rate": "0.25"}},
										{"interval": "3_FAIXA", "value": "-1", "customers": {"rate": "1.25"}},
										{"interval": "5_FAIXA", "value": "99"}
									],
									"minimum": {"value": "0.00"},
									"maximum": {"value": "30.00"}
								},
								{"name": "Duplicado", "code": "CADASTRO"}
							],
							"otherServices": [
								{"name": "Saque extra"},
								{"name": "Saque extra"},
								{"code": "SEM_NOME"}
							]
						},
						"serviceBundles": [
							{
								"name": "Pacote Essencial",
								"prices": [{"interval": "4_FAIXA", "value": 19.9, "customers": {"rate": 0.1}}],
								"minimum": {"value": -5},
								"maximum": {"value": 25}
							},
							{"name": "Pacote Essencial"},
							{"prices": []},
							"garbage"
						]
					}
				],
				"personalLoans": [
					{
						"type": "EMPRESTIMO_CREDITO_PESSOAL_NAO_CONSIGNADO",
						"interestRates": [
							{
								"referentialRateIndexer": "PRE_FIXADO",
								"rate": "0.05",
								"minimumRate": "0.01",
								"maximumRate": "0.30",
								"applications": [
									{"interval": "1_FAIXA", "indexer": {"rate": "0.02"}, "customers": {"rate": "0.4"}}
								]
							},
							{
								"referentialRateIndexer": "NA",
								"rate": -0.5
							}
						]
					},
					{
						"name": "Emprestimo sem tipo",
						"interest": {"rates": [{"rate": "0.1"}]}
					}
				]
			},
			{
				"personalCreditCards": [
					{"name": "Cartao sem tipo", "identification": {"creditCard": {"network": "VISA"}}},
					{
						"name": "Cartao Gold",
						"identification": {"product": {"type": "GOLD_OU_EQUIVALENTE"}, "creditCard": {"network": "MASTERCARD"}},
						"rewardsProgram": {"hasRewardProgram": "true"},
						"interest": {"rates": []}
					}
				],
				"businessUnarrangedAccountOverdraft": [
					{"name": "Cheque especial PJ", "type": "CHEQUE_ESPECIAL"}
				]
			}
		]
	}
}`

func TestProdutos(t *testing.T) {
	tel := telemetry.NewRecorder()
	n := New(tel)

	endpoint := "https://api.exemplo.com.br/open-banking/products-services/v1/personal-accounts"
	produtos := n.Produtos([]openbanking.Page{{
		Endpoint: endpoint,
		Data:     parseObject(t, accountsPage),
	}})

	require.Len(t, produtos, 6)
	for i, produto := range produtos {
		require.Equal(t, i+1, produto.Seq)
		require.Equal(t, endpoint, produto.Endpoint)
	}

	conta := produtos[0]
	require.Equal(t, "personalAccounts", conta.Key)
	require.Equal(t, "CONTA_DEPOSITO_A_VISTA", conta.Tipo)
	require.Equal(t, "Conta Corrente", conta.Categoria)
	require.Equal(t, ptr("Conta corrente"), conta.Nome)
	require.Equal(t, 1, conta.JurosSeq)
	require.Nil(t, conta.IndexadorRate)

	expectServicos := []model.Servico{
		{
			Seq:         1,
			Nome:        "Confecção de cadastro para início de relacionamento",
			Codigo:      ptr("CADASTRO"),
			FatoGerador: ptr("Realização de pesquisa em serviços de proteção ao crédito"),
			TaxaMinima:  ptr(0.0),
			TaxaMaxima:  ptr(30.0),
			Faixas: [model.FaixaCount]model.Faixa{
				{Taxa: ptr(0.0), Clientes: ptr(0.25)},
				{Taxa: ptr(15.0), Clientes: ptr(0.25)},
				{},
				{},
			},
		},
		{Seq: 2, Nome: "Saque extra"},
	}
	require.Empty(t, cmp.Diff(expectServicos, conta.Servicos))

	expectPacotes := []model.Pacote{
		{
			Seq:        1,
			Nome:       "Pacote Essencial",
			TaxaMaxima: ptr(25.0),
			Faixas: [model.FaixaCount]model.Faixa{
				{}, {}, {},
				{Taxa: ptr(19.9), Clientes: ptr(0.1)},
			},
		},
	}
	require.Empty(t, cmp.Diff(expectPacotes, conta.Pacotes))

	emprestimo1, emprestimo2 := produtos[1], produtos[2]
	require.Equal(t, ptr("Crédito pessoal sem consignação"), emprestimo1.Nome)
	require.Equal(t, "Empréstimo", emprestimo1.Categoria)
	require.Equal(t, 1, emprestimo1.JurosSeq)
	require.Equal(t, ptr("PRE_FIXADO"), emprestimo1.Indexador)
	require.Equal(t, ptr(0.05), emprestimo1.IndexadorRate)
	require.Equal(t, ptr(0.01), emprestimo1.TaxaMinima)
	require.Equal(t, ptr(0.30), emprestimo1.TaxaMaxima)
	require.Equal(t, model.Faixa{Taxa: ptr(0.02), Clientes: ptr(0.4)}, emprestimo1.Faixas[0])

	require.Equal(t, emprestimo1.Tipo, emprestimo2.Tipo)
	require.Equal(t, 2, emprestimo2.JurosSeq)
	require.Nil(t, emprestimo2.Indexador)
	require.Nil(t, emprestimo2.IndexadorRate)

	semTipo := produtos[3]
	require.Equal(t, TipoUnknown, semTipo.Tipo)
	require.Equal(t, ptr("Emprestimo sem tipo"), semTipo.Nome)
	require.Equal(t, ptr(0.1), semTipo.IndexadorRate)

	cartao := produtos[4]
	require.Equal(t, "personalCreditCards", cartao.Key)
	require.Equal(t, "GOLD_OU_EQUIVALENTE", cartao.Tipo)
	require.Equal(t, "Cartão de Crédito", cartao.Categoria)
	require.Equal(t, ptr("Cartao Gold"), cartao.Nome)
	require.Equal(t, ptr("MASTERCARD"), cartao.Rede)
	require.Equal(t, ptr(true), cartao.ProgramaRecompensas)
	require.Equal(t, 1, cartao.JurosSeq)

	adp := produtos[5]
	require.Equal(t, TipoAdiantamento, adp.Tipo)
	require.Equal(t, ptr(NomeAdiantamento), adp.Nome)
	require.Equal(t, "Adiantamento a Depositante", adp.Categoria)

	require.Len(t, tel.Reports("warning", report_normalizer_produto), 1)
	require.Len(t, tel.Reports("warning", report_normalizer_servico), 3)
	require.Len(t, tel.Reports("warning", report_normalizer_pacote), 2)
}

func TestCategoria(t *testing.T) {
	testCases := []struct {
		key    string
		expect string
	}{
		{key: "businessFinancings", expect: "Financiamento"},
		{key: "personalInvoiceFinancings", expect: "Antecipação de Recebíveis"},
		{key: "businessAccounts", expect: "Conta Corrente"},
		{key: "somethingElse", expect: CategoriaOutros},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, Categoria(test.key))
	}
	for _, key := range ProductKeys {
		require.NotEqual(t, CategoriaOutros, Categoria(key), key)
	}
}
