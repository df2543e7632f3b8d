package cloudflare

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	cf "github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/dns"
)

// DefaultBaseURL is the Cloudflare v4 API root.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

const (
	opListZones    = "list_zones"
	opCreateRecord = "create_record"
)

func init() {
	dns.Register("cloudflare", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider for the Cloudflare v4 API.
type Provider struct {
	baseURL    string
	perPage    int
	httpClient *http.Client
	log        logr.Logger
}

// New creates a Cloudflare DNS provider from the given settings map.
// Optional settings: base_url (default DefaultBaseURL), timeout (default 30s),
// per_page (default 50), skip_tls_verify (default false).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	baseURL := settings["base_url"]
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("cloudflare: invalid base_url %q: %w", baseURL, err)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 30 * time.Second
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid timeout %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("cloudflare: timeout must be positive, got %q", v)
		}
		timeout = parsed
	}

	perPage := 50
	if v := settings["per_page"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid per_page %q: %w", v, err)
		}
		if parsed < 5 || parsed > 50 {
			return nil, fmt.Errorf("cloudflare: per_page must be between 5 and 50, got %d", parsed)
		}
		perPage = parsed
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Provider{
		baseURL:    baseURL,
		perPage:    perPage,
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		log:        log,
	}, nil
}

// exchange wraps the HTTP transport of a single API client and keeps the
// last response status and body. The library drops the success flag and
// error list of a 200 response, and reports 5xx without a status.
type exchange struct {
	next   http.RoundTripper
	status int
	body   []byte
}

func (e *exchange) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := e.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	e.status = resp.StatusCode
	e.body = data
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

// firstError returns the first error message of the recorded response body.
func (e *exchange) firstError() string {
	var resp cf.Response
	if err := json.Unmarshal(e.body, &resp); err != nil {
		return ""
	}
	for _, m := range resp.Errors {
		if m.Message != "" {
			return m.Message
		}
	}
	return ""
}

// client builds an API client authenticated with apiToken. Retries are off:
// every failure goes straight back to the user.
func (p *Provider) client(apiToken string) (*cf.API, *exchange, error) {
	ex := &exchange{next: p.httpClient.Transport}
	api, err := cf.NewWithAPIToken(apiToken,
		cf.BaseURL(p.baseURL),
		cf.HTTPClient(&http.Client{Transport: ex, Timeout: p.httpClient.Timeout}),
		cf.UsingRetryPolicy(0, 0, 0),
	)
	if err != nil {
		return nil, nil, err
	}
	return api, ex, nil
}

// apiError is satisfied by the library's typed 4xx errors.
type apiError interface {
	ErrorMessages() []string
}

// classify maps a failed call onto a provider error. The recorded status
// decides the kind, the library error supplies the message.
func classify(op string, ex *exchange, err error) *dns.Error {
	switch {
	case ex.status == 0:
		return &dns.Error{Kind: dns.KindTransportError, Op: op, Err: err}
	case ex.status == http.StatusOK:
		// Reached the API but the body did not decode.
		return &dns.Error{Kind: dns.KindTransportError, Op: op, StatusCode: ex.status, Err: err}
	}

	kind := dns.KindHTTPError
	if ex.status == http.StatusUnauthorized || ex.status == http.StatusForbidden {
		kind = dns.KindUnauthorized
	}
	msg := ex.firstError()
	var ae apiError
	if errors.As(err, &ae) {
		for _, m := range ae.ErrorMessages() {
			if m != "" {
				msg = m
				break
			}
		}
	}
	return &dns.Error{Kind: kind, Op: op, StatusCode: ex.status, Message: msg}
}

// ListZones returns the zones visible to apiToken. An empty zone list is
// reported as a dns.KindNoZones error.
func (p *Provider) ListZones(ctx context.Context, apiToken string) ([]dns.Zone, error) {
	p.log.V(1).Info("listing zones")

	api, ex, err := p.client(apiToken)
	if err != nil {
		return nil, &dns.Error{Kind: dns.KindTransportError, Op: opListZones, Err: err}
	}
	resp, err := api.ListZonesContext(ctx, cf.WithPagination(cf.PaginationOptions{Page: 1, PerPage: p.perPage}))
	if err != nil {
		perr := classify(opListZones, ex, err)
		p.log.Info("zone listing rejected", "status", ex.status, "kind", perr.Kind.String())
		return nil, perr
	}
	if len(resp.Result) == 0 {
		return nil, &dns.Error{Kind: dns.KindNoZones, Op: opListZones, StatusCode: ex.status}
	}

	zones := make([]dns.Zone, 0, len(resp.Result))
	for _, z := range resp.Result {
		zones = append(zones, dns.Zone{ID: z.ID, Name: z.Name})
	}
	p.log.V(1).Info("zones listed", "count", len(zones))
	return zones, nil
}

// CreateRecord creates record in zoneID and returns the new record's id.
func (p *Provider) CreateRecord(ctx context.Context, apiToken, zoneID string, record dns.Record) (string, error) {
	p.log.Info("creating record", "zone", zoneID, "name", record.Hostname, "type", record.Type, "value", record.Value)

	api, ex, err := p.client(apiToken)
	if err != nil {
		return "", &dns.Error{Kind: dns.KindTransportError, Op: opCreateRecord, Err: err}
	}
	params := cf.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    record.Hostname,
		Content: record.Value,
		TTL:     record.TTL,
		Proxied: cf.BoolPtr(record.Proxied),
	}
	created, err := api.CreateDNSRecord(ctx, cf.ZoneIdentifier(url.PathEscape(zoneID)), params)
	if err != nil {
		perr := classify(opCreateRecord, ex, err)
		p.log.Info("record creation rejected", "status", ex.status, "kind", perr.Kind.String())
		return "", perr
	}
	if created.ID == "" {
		// 200 with success=false carries no record.
		return "", &dns.Error{Kind: dns.KindHTTPError, Op: opCreateRecord, StatusCode: ex.status, Message: ex.firstError()}
	}

	p.log.Info("record created", "id", created.ID, "name", record.Hostname)
	return created.ID, nil
}
