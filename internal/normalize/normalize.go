// Package normalize turns the raw json published by the participants into the
// typed records of package model.
//
// Participants often publish data that does not follow the documented format,
// a field that fails validation is dropped (left nil) and the record is kept.
// A record is only dropped when the field that identifies it is unusable.
// Neither case is an error, both are only reported to telemetry.
package normalize

import (
	"net/url"
	"openbankingbr/internal/components/assert"
	"openbankingbr/internal/components/telemetry"
	"openbankingbr/internal/model"
	"openbankingbr/lib/textutil"
	"strings"
)

const (
	report_normalizer_participant = "normalizer.participant"
	report_normalizer_agencia     = "normalizer.agencia"
	report_normalizer_produto     = "normalizer.produto"
	report_normalizer_servico     = "normalizer.servico"
	report_normalizer_pacote      = "normalizer.pacote"
)

type Normalizer struct {
	tel telemetry.API
}

func New(tel telemetry.API) Normalizer {
	assert.NotNil(tel)
	return Normalizer{tel: telemetry.NewScopedAPI("normalize", tel)}
}

// dropped reports a field that was left out because it failed validation.
func (n Normalizer) dropped(record, field string, value any) {
	n.tel.ReportDebug("dropped field", record, field, value)
}

// Participant normalizes a directory entry, false is returned when the entry has no OrganisationId.
func (n Normalizer) Participant(raw map[string]any) (model.Participant, bool) {
	id, ok := String(raw, "OrganisationId")
	if !ok {
		n.tel.ReportWarning(report_normalizer_participant, "missing OrganisationId", Lookup(raw, "OrganisationName"))
		return model.Participant{}, false
	}

	p := model.Participant{ID: id}
	p.Name, _ = String(raw, "OrganisationName")
	p.RegistrationID, _ = String(raw, "RegistrationId")

	registration, ok := String(raw, "RegistrationNumber")
	if ok {
		p.RegistrationNumber = registration
		cnpj, valid := CNPJ(textutil.Digits(registration))
		if valid {
			p.CNPJ = &cnpj
		} else {
			n.dropped(id, "RegistrationNumber", registration)
		}
	}

	p.Endpoints = n.endpoints(raw)
	if len(p.Endpoints) > 0 {
		base, err := url.Parse(p.Endpoints[0])
		if err == nil && base.Host != "" {
			p.BaseURL = base.Scheme + "://" + base.Host
		}
	}
	return p, true
}

// endpoints collects AuthorisationServers[].ApiResources[].ApiDiscoveryEndpoints[].ApiEndpoint,
// the same endpoint is often listed under more than one server.
func (n Normalizer) endpoints(raw map[string]any) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, server := range Objects(raw, "AuthorisationServers") {
		for _, resource := range Objects(server, "ApiResources") {
			for _, discovery := range Objects(resource, "ApiDiscoveryEndpoints") {
				endpoint, ok := Lookup(discovery, "ApiEndpoint").(string)
				endpoint = strings.TrimSpace(endpoint)
				if !ok || endpoint == "" || seen[endpoint] {
					continue
				}
				seen[endpoint] = true
				out = append(out, endpoint)
			}
		}
	}
	return out
}
