package openbanking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MaxPages bounds how many pages FetchPages follows through links.next.
const MaxPages = 500

// Page is the `data` object of one page of a paginated response.
type Page struct {
	Endpoint string
	Data     map[string]any
}

type links struct {
	Next any `json:"next"`
}

// nextLink returns the absolute http(s) url of the next page, false when there is none.
func nextLink(raw any) (string, bool) {
	next, ok := raw.(string)
	if !ok || next == "" {
		return "", false
	}
	parsed, err := url.Parse(next)
	if err != nil {
		return "", false
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", false
	}
	return next, true
}

// FetchPages fetches `endpoint` and every page linked through links.next.
// The pagination is followed only while the next link is absolute and was not
// visited yet, some participants link a page back to itself.
func (c *Client) FetchPages(ctx context.Context, participant, endpoint string) ([]Page, error) {
	ctx, span := tracer.Start(ctx, "FetchPages")
	defer span.End()
	span.SetAttributes(attribute.String("custom.url", endpoint))

	visited := map[string]bool{}
	pages := []Page{}
	current := endpoint

	for current != "" {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		visited[current] = true
		body, err := c.Fetch(ctx, participant, current)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch page")
			return nil, err
		}

		var root map[string]json.RawMessage
		err = json.Unmarshal(body, &root)
		if err != nil || root == nil {
			err = fmt.Errorf("%w: %s is not a json object", ErrInvalidPayload, current)
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid page")
			return nil, err
		}

		var data map[string]any
		if raw, ok := root["data"]; ok {
			err = json.Unmarshal(raw, &data)
			if err != nil {
				c.tel.ReportWarning(report_client_fetch_pages, "data is not an object", current)
			}
		}
		if data == nil {
			// no data, nothing more to follow
			break
		}
		pages = append(pages, Page{Endpoint: current, Data: data})

		var pageLinks links
		if raw, ok := root["links"]; ok {
			json.Unmarshal(raw, &pageLinks)
		}
		next, ok := nextLink(pageLinks.Next)
		if !ok || visited[next] {
			break
		}
		if len(pages) >= MaxPages {
			c.tel.ReportWarning(report_client_fetch_pages, "page limit reached", endpoint, MaxPages)
			break
		}
		current = next
	}

	span.SetAttributes(attribute.Int("custom.pages", len(pages)))
	return pages, nil
}
