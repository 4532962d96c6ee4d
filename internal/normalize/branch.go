package normalize

import (
	"openbankingbr/internal/model"
	"openbankingbr/internal/openbanking"
	"strconv"
)

// companies returns brand.companies of a page.
func companies(page openbanking.Page) []map[string]any {
	return Objects(page.Data, "brand.companies")
}

// Agencias normalizes the branches of every company in `pages`.
// Branches are numbered in order, a branch code seen before is dropped.
func (n Normalizer) Agencias(pages []openbanking.Page) []model.Agencia {
	out := []model.Agencia{}
	seen := map[int64]bool{}

	for _, page := range pages {
		for _, company := range companies(page) {
			if _, ok := List(company, "branches"); !ok {
				name, _ := String(company, "name")
				n.tel.ReportWarning(report_normalizer_agencia, "company without branches", name, page.Endpoint)
				continue
			}
			for _, raw := range Objects(company, "branches") {
				agencia, ok := n.agencia(raw)
				if !ok {
					continue
				}
				if seen[agencia.Codigo] {
					n.tel.ReportWarning(report_normalizer_agencia, "duplicate branch code", agencia.Codigo, page.Endpoint)
					continue
				}
				seen[agencia.Codigo] = true

				agencia.Seq = len(out) + 1
				agencia.Endpoint = page.Endpoint
				out = append(out, agencia)
			}
		}
	}
	return out
}

func (n Normalizer) agencia(raw map[string]any) (model.Agencia, bool) {
	codigo, ok := Int(raw, "identification.code")
	if !ok {
		n.tel.ReportWarning(report_normalizer_agencia, "missing identification.code", Lookup(raw, "identification.name"))
		return model.Agencia{}, false
	}
	record := "agencia " + strconv.FormatInt(codigo, 10)

	a := model.Agencia{
		Codigo:            codigo,
		Tipo:              StringPtr(raw, "identification.type"),
		DigitoVerificador: StringPtr(raw, "identification.checkDigit"),
		Nome:              StringPtr(raw, "identification.name"),
		Endereco:          StringPtr(raw, "postalAddress.address"),
		Complemento:       StringPtr(raw, "postalAddress.additionalInfo"),
		Bairro:            StringPtr(raw, "postalAddress.districtName"),
		Cidade:            StringPtr(raw, "postalAddress.townName"),
		Servicos:          []string{},
	}

	if uf, ok := String(raw, "postalAddress.countrySubDivision"); ok {
		valid, isUF := UF(uf)
		if isUF {
			a.UF = &valid
		} else {
			n.dropped(record, "countrySubDivision", uf)
		}
	}

	if digits, ok := Digits(raw, "postalAddress.postCode"); ok {
		cep, valid := CEP(digits)
		if valid {
			a.CEP = &cep
		} else {
			n.dropped(record, "postCode", digits)
		}
	}

	if digits, ok := Digits(raw, "postalAddress.ibgeCode"); ok {
		ibge, valid := IBGE(digits)
		if valid {
			a.CodigoIBGE = &ibge
		} else {
			n.dropped(record, "ibgeCode", digits)
		}
	}

	if lat, ok := Float(raw, "postalAddress.geographicCoordinates.latitude"); ok {
		if Latitude(lat) {
			a.Latitude = &lat
		} else {
			n.dropped(record, "latitude", lat)
		}
	}
	if long, ok := Float(raw, "postalAddress.geographicCoordinates.longitude"); ok {
		if Longitude(long) {
			a.Longitude = &long
		} else {
			n.dropped(record, "longitude", long)
		}
	}

	a.Telefone = telefone(raw)

	for _, service := range Objects(raw, "services") {
		code, ok := String(service, "code")
		if ok {
			a.Servicos = append(a.Servicos, code)
		}
	}

	public, _ := Bool(raw, "availability.isPublicAccessAllowed")
	a.AcessoPublico = public

	return a, true
}

// telefone picks the first FIXO phone, then the first MOVEL phone, formatted as
// country calling code + area code + number. Numbers with 3 digits or less are skipped.
func telefone(raw map[string]any) *string {
	phones := Objects(raw, "phones")
	for _, tipo := range []string{"FIXO", "MOVEL"} {
		for _, phone := range phones {
			phoneType, _ := String(phone, "type")
			if phoneType != tipo {
				continue
			}
			value := ""
			for _, field := range []string{"countryCallingCode", "areaCode", "number"} {
				digits, ok := Digits(phone, field)
				if ok {
					value += digits
				}
			}
			if len(value) > 3 {
				return &value
			}
		}
	}
	return nil
}
