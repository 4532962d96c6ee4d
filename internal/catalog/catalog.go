// Package catalog loads the participants of the directory and populates them
// with their branches and products.
package catalog

import (
	"context"
	"fmt"
	"openbankingbr/internal/components/assert"
	"openbankingbr/internal/components/telemetry"
	"openbankingbr/internal/model"
	"openbankingbr/internal/normalize"
	"openbankingbr/internal/openbanking"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	BranchesSuffix  = "/open-banking/channels/v1/branches"
	ProductsSegment = "/open-banking/products-services/v1/"
)

const (
	report_catalog_participants = "catalog.participants"
	report_catalog_load         = "catalog.load"
)

var tracer = otel.Tracer("openbankingbr.internal.catalog")

// Fetcher is implemented by *openbanking.Client.
type Fetcher interface {
	Directory(ctx context.Context) ([]map[string]any, error)
	FetchPages(ctx context.Context, participant, url string) ([]openbanking.Page, error)
}

// Sections selects which collections of a participant Load populates.
type Sections struct {
	Agencias bool
	Produtos bool
}

var AllSections = Sections{Agencias: true, Produtos: true}

type Catalog struct {
	fetcher    Fetcher
	normalizer normalize.Normalizer
	tel        telemetry.API
}

func New(fetcher Fetcher, tel telemetry.API) *Catalog {
	assert.NotNil(fetcher)
	assert.NotNil(tel)

	return &Catalog{
		fetcher:    fetcher,
		normalizer: normalize.New(tel),
		tel:        telemetry.NewScopedAPI("catalog", tel),
	}
}

// Participants returns the normalized participants of the directory, in directory order.
// Entries without an OrganisationId and repeated ids are left out.
func (c *Catalog) Participants(ctx context.Context) ([]model.Participant, error) {
	ctx, span := tracer.Start(ctx, "Participants")
	defer span.End()

	entries, err := c.fetcher.Directory(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch directory")
		return nil, err
	}

	out := make([]model.Participant, 0, len(entries))
	seen := map[string]bool{}
	for _, entry := range entries {
		p, ok := c.normalizer.Participant(entry)
		if !ok {
			continue
		}
		if seen[p.ID] {
			c.tel.ReportWarning(report_catalog_participants, "duplicate participant", p.ID, p.Name)
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}

	span.SetAttributes(attribute.Int("custom.participants", len(out)))
	c.tel.ReportCount(report_catalog_participants, int64(len(out)))
	return out, nil
}

// BranchesEndpoint returns the first endpoint of `p` publishing branches.
func BranchesEndpoint(p model.Participant) (string, bool) {
	for _, endpoint := range p.Endpoints {
		if strings.HasSuffix(strings.TrimRight(endpoint, "/"), BranchesSuffix) {
			return endpoint, true
		}
	}
	return "", false
}

// ProductsEndpoints returns every endpoint of `p` publishing products and services.
func ProductsEndpoints(p model.Participant) []string {
	out := []string{}
	for _, endpoint := range p.Endpoints {
		if strings.Contains(endpoint, ProductsSegment) {
			out = append(out, endpoint)
		}
	}
	return out
}

// Load returns a copy of `p` populated with the selected sections. Any fetch
// failure fails the whole participant so callers never see a partial one.
func (c *Catalog) Load(ctx context.Context, p model.Participant, sections Sections) (model.Participant, error) {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(
		attribute.String("custom.participant", p.ID),
		attribute.String("custom.name", p.Name),
	)

	p.Agencias = []model.Agencia{}
	p.Produtos = []model.Produto{}

	if sections.Agencias {
		endpoint, ok := BranchesEndpoint(p)
		if ok {
			pages, err := c.fetcher.FetchPages(ctx, p.ID, endpoint)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch branches")
				return model.Participant{}, fmt.Errorf("branches: %w", err)
			}
			p.Agencias = c.normalizer.Agencias(pages)
		} else {
			c.tel.ReportDebug("no branches endpoint", p.Name)
		}
	}

	if sections.Produtos {
		pages := []openbanking.Page{}
		for _, endpoint := range ProductsEndpoints(p) {
			if ctx.Err() != nil {
				return model.Participant{}, ctx.Err()
			}
			endpointPages, err := c.fetcher.FetchPages(ctx, p.ID, endpoint)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch products")
				return model.Participant{}, fmt.Errorf("products %s: %w", endpoint, err)
			}
			pages = append(pages, endpointPages...)
		}
		p.Produtos = c.normalizer.Produtos(pages)
	}

	c.tel.ReportDebug(
		report_catalog_load,
		p.Name,
		len(p.Agencias),
		len(p.Produtos),
	)
	return p, nil
}
