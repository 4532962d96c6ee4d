// Package model contains the in-memory object graph of the public data published
// by an open banking participant: Participant -> Agencias/Produtos -> Servicos/Pacotes.
//
// Optional fields are pointers, a nil pointer means the upstream value was
// missing or did not pass validation.
package model

// Participant is a financial institution listed in the Open Banking Brasil directory.
type Participant struct {
	// ID is the OrganisationId of the participant in the directory.
	ID                 string
	Name               string
	CNPJ               *int64
	RegistrationNumber string
	RegistrationID     string
	// BaseURL is the scheme and host of the first API endpoint the participant publishes.
	BaseURL   string
	Endpoints []string

	Agencias []Agencia
	Produtos []Produto
}

// Agencia is a branch (or other service point) of a participant.
type Agencia struct {
	Seq      int
	Endpoint string

	Tipo              *string
	Codigo            int64
	DigitoVerificador *string
	Nome              *string
	Telefone          *string
	Endereco          *string
	Complemento       *string
	Bairro            *string
	Cidade            *string
	UF                *string
	CEP               *string
	CodigoIBGE        *string
	Latitude          *float64
	Longitude         *float64
	Servicos          []string
	AcessoPublico     bool
}

// Faixa is one of the four equally sized bands in which the distribution of the
// rates charged to customers is disclosed (BCB Normativa n. 32 of 2020).
type Faixa struct {
	// Taxa is the median rate charged in the band.
	Taxa *float64
	// Clientes is the share of customers in the band, in [0, 1].
	Clientes *float64
}

// FaixaCount is the number of bands every price distribution is split in.
const FaixaCount = 4

// Produto is a product offered by a participant. Products that publish several
// interest rates produce one Produto per rate, distinguished by JurosSeq.
type Produto struct {
	Seq      int
	Endpoint string
	// Key is the category key the product was listed under, ex. personalLoans.
	Key string

	Tipo                string
	Categoria           string
	Nome                *string
	Rede                *string
	Indexador           *string
	IndexadorRate       *float64
	TaxaMinima          *float64
	TaxaMaxima          *float64
	Faixas              [FaixaCount]Faixa
	ProgramaRecompensas *bool
	JurosSeq            int

	Servicos []Servico
	Pacotes  []Pacote
}

// Servico is a service fee charged on a product.
type Servico struct {
	Seq         int
	Nome        string
	Codigo      *string
	FatoGerador *string
	TaxaMinima  *float64
	TaxaMaxima  *float64
	Faixas      [FaixaCount]Faixa
}

// Pacote is a bundle of services offered for a product.
type Pacote struct {
	Seq        int
	Nome       string
	TaxaMinima *float64
	TaxaMaxima *float64
	Faixas     [FaixaCount]Faixa
}

// Detailed reports if the services and packages of the product are its own.
// Products split by interest rate share them, only the first rate carries them.
func (p Produto) Detailed() bool {
	return p.JurosSeq <= 1
}

// TotalServicos returns the amount of distinct services across all products.
func (p Participant) TotalServicos() int {
	n := 0
	for _, produto := range p.Produtos {
		if produto.Detailed() {
			n += len(produto.Servicos)
		}
	}
	return n
}

// TotalPacotes returns the amount of distinct packages across all products.
func (p Participant) TotalPacotes() int {
	n := 0
	for _, produto := range p.Produtos {
		if produto.Detailed() {
			n += len(produto.Pacotes)
		}
	}
	return n
}
