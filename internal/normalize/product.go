package normalize

import (
	"fmt"
	"openbankingbr/internal/model"
	"openbankingbr/internal/openbanking"
)

// intervals maps the band names of a price distribution to their index in model.Faixa arrays.
var intervals = map[string]int{
	"1_FAIXA": 0,
	"2_FAIXA": 1,
	"3_FAIXA": 2,
	"4_FAIXA": 3,
}

// Produtos normalizes the products of every company in `pages`, every key of
// ProductKeys present in a company is read.
//
// A product that publishes interest rates (interestRates or interest.rates)
// produces one model.Produto per rate, numbered by JurosSeq.
func (n Normalizer) Produtos(pages []openbanking.Page) []model.Produto {
	out := []model.Produto{}

	for _, page := range pages {
		for _, company := range companies(page) {
			for _, key := range ProductKeys {
				for _, item := range Objects(company, key) {
					for _, produto := range n.produto(key, item) {
						produto.Seq = len(out) + 1
						produto.Endpoint = page.Endpoint
						out = append(out, produto)
					}
				}
			}
		}
	}
	return out
}

func interestRates(item map[string]any) ([]map[string]any, bool) {
	if _, ok := List(item, "interestRates"); ok {
		return Objects(item, "interestRates"), true
	}
	if _, ok := List(item, "interest.rates"); ok {
		return Objects(item, "interest.rates"), true
	}
	return nil, false
}

func (n Normalizer) produto(key string, item map[string]any) []model.Produto {
	base := model.Produto{
		Key:       key,
		Categoria: Categoria(key),
		Rede:      StringPtr(item, "identification.creditCard.network"),
	}

	switch {
	case isCreditCard(key):
		tipo, ok := String(item, "identification.product.type")
		if !ok {
			n.tel.ReportWarning(report_normalizer_produto, "credit card without identification.product.type", key, Lookup(item, "name"))
			return nil
		}
		base.Tipo = tipo
	case isOverdraft(key):
		base.Tipo = TipoAdiantamento
	default:
		tipo, ok := String(item, "type")
		if ok {
			base.Tipo = tipo
		} else {
			base.Tipo = TipoUnknown
		}
	}

	if isOverdraft(key) {
		nome := NomeAdiantamento
		base.Nome = &nome
	} else if nome, ok := NomeProduto(base.Tipo); ok {
		base.Nome = &nome
	} else {
		base.Nome = StringPtr(item, "name")
	}

	if rewards, ok := Bool(item, "rewardsProgram.hasRewardProgram"); ok {
		base.ProgramaRecompensas = &rewards
	}

	record := fmt.Sprintf("produto %s %s", key, base.Tipo)
	base.Servicos = n.servicos(record, item)
	base.Pacotes = n.pacotes(record, item)

	rates, ok := interestRates(item)
	if !ok || len(rates) == 0 {
		base.JurosSeq = 1
		return []model.Produto{base}
	}

	out := make([]model.Produto, 0, len(rates))
	for i, rate := range rates {
		produto := base
		produto.JurosSeq = i + 1
		n.applyRate(record, &produto, rate)
		out = append(out, produto)
	}
	return out
}

func (n Normalizer) applyRate(record string, produto *model.Produto, rate map[string]any) {
	produto.Indexador = StringPtr(rate, "referentialRateIndexer")
	produto.IndexadorRate = n.rate(record, "rate", rate, "rate")
	produto.TaxaMinima = n.rate(record, "minimumRate", rate, "minimumRate")
	produto.TaxaMaxima = n.rate(record, "maximumRate", rate, "maximumRate")
	produto.Faixas = n.faixas(record, Objects(rate, "applications"), "indexer.rate")
}

// rate returns the non negative number at `path`.
func (n Normalizer) rate(record, field string, obj map[string]any, path string) *float64 {
	f, ok := Float(obj, path)
	if !ok {
		return nil
	}
	if !NonNegative(f) {
		n.dropped(record, field, f)
		return nil
	}
	return &f
}

// faixas reads a price distribution, `valuePath` is where the price of each band is.
func (n Normalizer) faixas(record string, bands []map[string]any, valuePath string) [model.FaixaCount]model.Faixa {
	var out [model.FaixaCount]model.Faixa
	for _, band := range bands {
		interval, _ := String(band, "interval")
		idx, ok := intervals[interval]
		if !ok {
			if interval != "" {
				n.dropped(record, "interval", interval)
			}
			continue
		}

		out[idx].Taxa = n.rate(record, fmt.Sprintf("%s.%s", interval, valuePath), band, valuePath)

		share, ok := Float(band, "customers.rate")
		if ok {
			if Share(share) {
				out[idx].Clientes = &share
			} else {
				n.dropped(record, fmt.Sprintf("%s.customers.rate", interval), share)
			}
		}
	}
	return out
}

var feeKeys = []string{"priorityServices", "otherServices", "services"}

// servicos reads fees.priorityServices, fees.otherServices and fees.services.
// A service is identified by its code, or its name when it has none.
func (n Normalizer) servicos(record string, item map[string]any) []model.Servico {
	out := []model.Servico{}
	seen := map[string]bool{}

	for _, key := range feeKeys {
		for _, raw := range Objects(item, "fees."+key) {
			nome, ok := String(raw, "name")
			if !ok {
				n.tel.ReportWarning(report_normalizer_servico, "service without name", record, Lookup(raw, "code"))
				continue
			}

			identity := "name:" + nome
			codigo := StringPtr(raw, "code")
			if codigo != nil {
				identity = "code:" + *codigo
			}
			if seen[identity] {
				n.tel.ReportWarning(report_normalizer_servico, "duplicate service", record, identity)
				continue
			}
			seen[identity] = true

			servicoRecord := record + " servico " + nome
			out = append(out, model.Servico{
				Seq:         len(out) + 1,
				Nome:        nome,
				Codigo:      codigo,
				FatoGerador: StringPtr(raw, "chargingTriggerInfo"),
				TaxaMinima:  n.rate(servicoRecord, "minimum.value", raw, "minimum.value"),
				TaxaMaxima:  n.rate(servicoRecord, "maximum.value", raw, "maximum.value"),
				Faixas:      n.faixas(servicoRecord, Objects(raw, "prices"), "value"),
			})
		}
	}
	return out
}

// pacotes reads serviceBundles, a bundle is identified by its name.
func (n Normalizer) pacotes(record string, item map[string]any) []model.Pacote {
	out := []model.Pacote{}
	seen := map[string]bool{}

	for _, raw := range Objects(item, "serviceBundles") {
		nome, ok := String(raw, "name")
		if !ok {
			n.tel.ReportWarning(report_normalizer_pacote, "bundle without name", record)
			continue
		}
		if seen[nome] {
			n.tel.ReportWarning(report_normalizer_pacote, "duplicate bundle", record, nome)
			continue
		}
		seen[nome] = true

		pacoteRecord := record + " pacote " + nome
		out = append(out, model.Pacote{
			Seq:        len(out) + 1,
			Nome:       nome,
			TaxaMinima: n.rate(pacoteRecord, "minimum.value", raw, "minimum.value"),
			TaxaMaxima: n.rate(pacoteRecord, "maximum.value", raw, "maximum.value"),
			Faixas:     n.faixas(pacoteRecord, Objects(raw, "prices"), "value"),
		})
	}
	return out
}
