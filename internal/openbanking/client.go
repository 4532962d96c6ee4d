// Package openbanking fetches the public data published by the participants of
// Open Banking Brasil, every payload goes through the day cache before hitting the network.
package openbanking

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"openbankingbr/internal/cache"
	"openbankingbr/internal/components/assert"
	"openbankingbr/internal/components/chrono"
	"openbankingbr/internal/components/telemetry"
	"openbankingbr/lib/restyutil"
	"sync/atomic"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const Version = "0.3.0"

const DefaultDirectoryURL = "https://data.directory.openbankingbrasil.org.br/participants"

// DirectoryParticipant is the participant id the directory payload is cached under.
const DirectoryParticipant = "directory"

const (
	report_client_fetch       = "client.fetch"
	report_client_fetch_pages = "client.fetch-pages"
	report_client_directory   = "client.directory"
	report_client_requests    = "client.requests"
	report_client_cache_hits  = "client.cache-hits"
)

var tracer = otel.Tracer("openbankingbr.internal.openbanking")

type Options struct {
	DirectoryURL string
	Timeout      time.Duration
	// RateLimit is the max amount of requests per second, <= 0 disables it.
	RateLimit          float64
	InsecureSkipVerify bool
	CloudflareBypass   bool
	// DumpOutput receives every request/response exchanged when not nil.
	DumpOutput restyutil.InstrumentOutput
}

func DefaultOptions() Options {
	return Options{
		DirectoryURL: DefaultDirectoryURL,
		Timeout:      time.Minute,
		RateLimit:    2,
	}
}

type Client struct {
	http         *resty.Client
	store        cache.Store
	clock        chrono.API
	tel          telemetry.API
	directoryUrl string
	requests     atomic.Int64
	cacheHits    atomic.Int64
}

// Stats counts what a Client served since it was created.
type Stats struct {
	Requests  int64
	CacheHits int64
}

func NewClient(opts Options, store cache.Store, clock chrono.API, tel telemetry.API) *Client {
	assert.NotNil(store)
	assert.NotNil(clock)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("openbanking", tel)

	if opts.DirectoryURL == "" {
		opts.DirectoryURL = DefaultDirectoryURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}

	httpClient := resty.New()
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("user-agent", fmt.Sprintf("OpenBankingBR/%s", Version))
	httpClient.SetHeader("accept", "application/json")
	httpClient.SetRetryCount(0)
	transport, ok := httpClient.GetClient().Transport.(*http.Transport)
	if !ok {
		transport = http.DefaultTransport.(*http.Transport).Clone()
		httpClient.SetTransport(transport)
	}
	if opts.CloudflareBypass {
		// replaces the tls config of the transport it wraps
		httpClient.SetTransport(cloudflarebp.AddCloudFlareByPass(transport))
	}
	if opts.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	if opts.RateLimit > 0 {
		// max burst >= 1 just means that no requests will be dropped
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(httpClient, tracer, opts.DumpOutput)
	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http:         httpClient,
		store:        store,
		clock:        clock,
		tel:          tel,
		directoryUrl: opts.DirectoryURL,
	}
}

// Fetch returns the json payload of `url`, fetched on behalf of `participant`.
// A payload already fetched during the current day is served from the cache.
func (c *Client) Fetch(ctx context.Context, participant, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("custom.participant", participant),
		attribute.String("custom.url", url),
	)

	key, err := cache.NewKey(url, participant, chrono.Today(c.clock))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}

	cached, err := c.store.Get(ctx, key)
	if err == nil {
		c.cacheHits.Add(1)
		c.tel.ReportDebug("cache hit", url)
		span.SetAttributes(attribute.Bool("custom.cache_hit", true))
		return cached, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		c.tel.ReportWarning(report_client_fetch, fmt.Errorf("cache read: %w", err), url)
	}

	c.requests.Add(1)
	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make request")
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if !res.IsSuccess() {
		err := StatusError{URL: url, StatusCode: res.StatusCode()}
		span.RecordError(err)
		span.SetStatus(codes.Error, "non 2xx status")
		return nil, err
	}

	body := res.Body()
	if !json.Valid(body) {
		err := fmt.Errorf("%w: %s did not return valid json", ErrInvalidPayload, url)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid json")
		return nil, err
	}

	err = c.store.Put(ctx, key, body)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch, fmt.Errorf("cache write: %w", err), url)
	}

	return body, nil
}

func (c *Client) Stats() Stats {
	return Stats{
		Requests:  c.requests.Load(),
		CacheHits: c.cacheHits.Load(),
	}
}

// ReportStats reports the totals of Stats, it is meant to be called once a batch of fetches is done.
func (c *Client) ReportStats() Stats {
	stats := c.Stats()
	c.tel.ReportCount(report_client_requests, stats.Requests)
	c.tel.ReportCount(report_client_cache_hits, stats.CacheHits)
	return stats
}

// Directory returns the raw entries of the participant directory.
func (c *Client) Directory(ctx context.Context) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Directory")
	defer span.End()

	body, err := c.Fetch(ctx, DirectoryParticipant, c.directoryUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch directory")
		return nil, fmt.Errorf("fetch directory: %w", err)
	}

	var entries []any
	err = json.Unmarshal(body, &entries)
	if err != nil || entries == nil {
		err = fmt.Errorf("%w: directory is not a json array", ErrInvalidPayload)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid directory")
		return nil, err
	}

	out := make([]map[string]any, 0, len(entries))
	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			c.tel.ReportWarning(report_client_directory, "directory entry is not an object", i)
			continue
		}
		out = append(out, obj)
	}
	c.tel.ReportDebug("directory fetched", len(out))
	return out, nil
}
