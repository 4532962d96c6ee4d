package catalog

import (
	"context"
	"errors"
	"net/url"
	"openbankingbr/internal/model"
	"openbankingbr/lib/textutil"
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/net/publicsuffix"
)

var ErrInvalidQuery = errors.New("exactly one search criterion must be given")

// MinNameSimilarity is the minimum Jaro-Winkler similarity for a name to match.
const MinNameSimilarity = 0.9

// Query searches a participant by one criterion.
type Query struct {
	CNPJ int64
	// Domain matches the registrable domain of any endpoint, ex. bcb.gov.br
	Domain string
	ID     string
	// Name matches approximately, ignoring accents and case.
	Name string
}

func (q Query) criteria() int {
	n := 0
	if q.CNPJ != 0 {
		n++
	}
	if q.Domain != "" {
		n++
	}
	if q.ID != "" {
		n++
	}
	if q.Name != "" {
		n++
	}
	return n
}

// registrableDomain returns the public suffix + 1 of a host or url.
func registrableDomain(hostOrUrl string) (string, bool) {
	host := strings.ToLower(strings.TrimSpace(hostOrUrl))
	if strings.Contains(host, "://") {
		parsed, err := url.Parse(host)
		if err != nil {
			return "", false
		}
		host = parsed.Hostname()
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", false
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	return domain, true
}

// Match returns the participant of `participants` matching `q`, when matching
// by name the most similar one is returned.
func Match(participants []model.Participant, q Query) (model.Participant, bool, error) {
	if q.criteria() != 1 {
		return model.Participant{}, false, ErrInvalidQuery
	}

	switch {
	case q.CNPJ != 0:
		for _, p := range participants {
			if p.CNPJ != nil && *p.CNPJ == q.CNPJ {
				return p, true, nil
			}
		}
	case q.ID != "":
		for _, p := range participants {
			if strings.EqualFold(p.ID, strings.TrimSpace(q.ID)) {
				return p, true, nil
			}
		}
	case q.Domain != "":
		domain, ok := registrableDomain(q.Domain)
		if !ok {
			return model.Participant{}, false, nil
		}
		for _, p := range participants {
			for _, endpoint := range p.Endpoints {
				endpointDomain, ok := registrableDomain(endpoint)
				if ok && endpointDomain == domain {
					return p, true, nil
				}
			}
		}
	case q.Name != "":
		name := textutil.NormalizeName(q.Name)
		best := -1
		bestScore := 0.0
		for i, p := range participants {
			score := matchr.JaroWinkler(name, textutil.NormalizeName(p.Name), false)
			if score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best >= 0 && bestScore >= MinNameSimilarity {
			return participants[best], true, nil
		}
	}
	return model.Participant{}, false, nil
}

// Find loads the directory and searches it with `q`.
func (c *Catalog) Find(ctx context.Context, q Query) (model.Participant, bool, error) {
	if q.criteria() != 1 {
		return model.Participant{}, false, ErrInvalidQuery
	}
	participants, err := c.Participants(ctx)
	if err != nil {
		return model.Participant{}, false, err
	}
	return Match(participants, q)
}
