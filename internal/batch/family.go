package batch

import (
	"fmt"
	"openbankingbr/internal/model"
	"strconv"
	"strings"
)

// Family is one kind of exported record, each family is written to its own file.
type Family string

const (
	FamilyAgencias Family = "agencias"
	FamilyProdutos Family = "produtos"
	FamilyServicos Family = "servicos"
	FamilyPacotes  Family = "pacotes"
)

// Families lists every family in export order.
var Families = []Family{FamilyAgencias, FamilyProdutos, FamilyServicos, FamilyPacotes}

// ParseFamilies resolves family names, "all" expands to every family.
// Repeated names are kept once, no names at all means every family.
func ParseFamilies(names []string) ([]Family, error) {
	if len(names) == 0 {
		return Families, nil
	}
	selected := map[Family]bool{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "all" {
			return Families, nil
		}
		found := false
		for _, f := range Families {
			if string(f) == name {
				selected[f] = true
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown family '%s', expected one of all, agencias, produtos, servicos, pacotes", name)
		}
	}
	out := []Family{}
	for _, f := range Families {
		if selected[f] {
			out = append(out, f)
		}
	}
	return out, nil
}

var participantHeader = []string{
	"DATA_BASE",
	"API",
	"PARTICIPANTE_SEQ",
	"PARTICIPANTE_ID",
	"PARTICIPANTE_CNPJ",
	"PARTICIPANTE_NOME",
}

func faixasHeader(prefix string) []string {
	out := []string{}
	for i := 1; i <= model.FaixaCount; i++ {
		out = append(out,
			fmt.Sprintf("%s_FAIXA%d_TAXA", prefix, i),
			fmt.Sprintf("%s_FAIXA%d_CLIENTES", prefix, i),
		)
	}
	return out
}

func concat(parts ...[]string) []string {
	out := []string{}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var headers = map[Family][]string{
	FamilyAgencias: concat(participantHeader, []string{
		"AGENCIA_SEQ",
		"AGENCIA_TIPO",
		"AGENCIA_CODIGO",
		"AGENCIA_DIGITO",
		"AGENCIA_NOME",
		"AGENCIA_TELEFONE",
		"AGENCIA_ENDERECO",
		"AGENCIA_COMPLEMENTO",
		"AGENCIA_BAIRRO",
		"AGENCIA_CIDADE",
		"AGENCIA_UF",
		"AGENCIA_CEP",
		"AGENCIA_CODIGO_IBGE",
		"AGENCIA_LATITUDE",
		"AGENCIA_LONGITUDE",
		"AGENCIA_SERVICOS",
		"AGENCIA_ACESSO_PUBLICO",
	}),
	FamilyProdutos: concat(participantHeader, []string{
		"PRODUTO_SEQ",
		"PRODUTO_TIPO",
		"PRODUTO_CATEGORIA",
		"PRODUTO_REDE",
		"PRODUTO_NOME",
		"PRODUTO_INDEXADOR",
		"PRODUTO_INDEXADOR_RATE",
		"PRODUTO_TAXA_MINIMA",
		"PRODUTO_TAXA_MAXIMA",
	}, faixasHeader("PRODUTO"), []string{
		"PRODUTO_PROGRAMA_RECOMPENSAS",
		"PRODUTO_JUROS_SEQ",
	}),
	FamilyServicos: concat(participantHeader, []string{
		"PRODUTO_SEQ",
		"PRODUTO_TIPO",
		"PRODUTO_CATEGORIA",
		"PRODUTO_NOME",
		"SERVICO_SEQ",
		"SERVICO_NOME",
		"SERVICO_CODIGO",
		"SERVICO_TAXA_MINIMA",
		"SERVICO_TAXA_MAXIMA",
	}, faixasHeader("SERVICO"), []string{
		"SERVICO_FATO_GERADOR",
	}),
	FamilyPacotes: concat(participantHeader, []string{
		"PRODUTO_SEQ",
		"PRODUTO_TIPO",
		"PRODUTO_CATEGORIA",
		"PRODUTO_NOME",
		"PACOTE_SEQ",
		"PACOTE_NOME",
		"PACOTE_TAXA_MINIMA",
		"PACOTE_TAXA_MAXIMA",
	}, faixasHeader("PACOTE")),
}

// keyColumns are the columns that identify a row within a participant.
var keyColumns = map[Family][]string{
	FamilyAgencias: {"AGENCIA_CODIGO"},
	FamilyProdutos: {"PRODUTO_SEQ"},
	FamilyServicos: {"PRODUTO_SEQ", "SERVICO_SEQ"},
	FamilyPacotes:  {"PRODUTO_SEQ", "PACOTE_SEQ"},
}

// Header returns the columns of the file of `family`.
func Header(family Family) []string {
	return headers[family]
}

// Row is one flattened record.
type Row struct {
	Participant string
	// Key identifies the row within its participant, see Key.
	Key    string
	Values []string
}

func text(value *string) string {
	if value == nil {
		return ""
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(*value)
}

func number(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func boolean(value *bool) string {
	if value == nil {
		return ""
	}
	return strconv.FormatBool(*value)
}

func cnpj(value *int64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%014d", *value)
}

func faixas(values [model.FaixaCount]model.Faixa) []string {
	out := make([]string, 0, 2*model.FaixaCount)
	for _, f := range values {
		out = append(out, number(f.Taxa), number(f.Clientes))
	}
	return out
}

func joinKey(parts ...int) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strconv.Itoa(p)
	}
	return strings.Join(out, "/")
}

// Rows flattens the records of `family` of a loaded participant, `seq` is
// the position of the participant in the directory.
func Rows(family Family, day string, seq int, p model.Participant) []Row {
	prefix := func(endpoint string) []string {
		return []string{day, endpoint, strconv.Itoa(seq), p.ID, cnpj(p.CNPJ), text(&p.Name)}
	}

	out := []Row{}
	switch family {
	case FamilyAgencias:
		for _, a := range p.Agencias {
			codigo := strconv.FormatInt(a.Codigo, 10)
			values := concat(prefix(a.Endpoint), []string{
				strconv.Itoa(a.Seq),
				text(a.Tipo),
				codigo,
				text(a.DigitoVerificador),
				text(a.Nome),
				text(a.Telefone),
				text(a.Endereco),
				text(a.Complemento),
				text(a.Bairro),
				text(a.Cidade),
				text(a.UF),
				text(a.CEP),
				text(a.CodigoIBGE),
				number(a.Latitude),
				number(a.Longitude),
				strings.Join(a.Servicos, "|"),
				strconv.FormatBool(a.AcessoPublico),
			})
			out = append(out, Row{Participant: p.ID, Key: codigo, Values: values})
		}
	case FamilyProdutos:
		for _, produto := range p.Produtos {
			values := concat(prefix(produto.Endpoint), []string{
				strconv.Itoa(produto.Seq),
				produto.Tipo,
				produto.Categoria,
				text(produto.Rede),
				text(produto.Nome),
				text(produto.Indexador),
				number(produto.IndexadorRate),
				number(produto.TaxaMinima),
				number(produto.TaxaMaxima),
			}, faixas(produto.Faixas), []string{
				boolean(produto.ProgramaRecompensas),
				strconv.Itoa(produto.JurosSeq),
			})
			out = append(out, Row{Participant: p.ID, Key: joinKey(produto.Seq), Values: values})
		}
	case FamilyServicos:
		for _, produto := range p.Produtos {
			if !produto.Detailed() {
				continue
			}
			for _, servico := range produto.Servicos {
				values := concat(prefix(produto.Endpoint), []string{
					strconv.Itoa(produto.Seq),
					produto.Tipo,
					produto.Categoria,
					text(produto.Nome),
					strconv.Itoa(servico.Seq),
					text(&servico.Nome),
					text(servico.Codigo),
					number(servico.TaxaMinima),
					number(servico.TaxaMaxima),
				}, faixas(servico.Faixas), []string{
					text(servico.FatoGerador),
				})
				out = append(out, Row{Participant: p.ID, Key: joinKey(produto.Seq, servico.Seq), Values: values})
			}
		}
	case FamilyPacotes:
		for _, produto := range p.Produtos {
			if !produto.Detailed() {
				continue
			}
			for _, pacote := range produto.Pacotes {
				values := concat(prefix(produto.Endpoint), []string{
					strconv.Itoa(produto.Seq),
					produto.Tipo,
					produto.Categoria,
					text(produto.Nome),
					strconv.Itoa(pacote.Seq),
					text(&pacote.Nome),
					number(pacote.TaxaMinima),
					number(pacote.TaxaMaxima),
				}, faixas(pacote.Faixas))
				out = append(out, Row{Participant: p.ID, Key: joinKey(produto.Seq, pacote.Seq), Values: values})
			}
		}
	}
	return out
}
