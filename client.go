package didprism

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Accept header values understood by the Prism Node resolution endpoint.
const (
	// Selects the full resolution-result envelope
	AcceptResolutionResult = `application/ld+json;profile="https://w3id.org/did-resolution"`
	// Selects the bare DID document as JSON-LD (the document default)
	AcceptDIDLDJSON = "application/did+ld+json"
	// Selects the bare DID document as plain JSON
	AcceptDIDJSON = "application/did+json"
)

const defaultClientTimeout = 30 * time.Second

// ClientConfig holds the construction-time configuration of a Client.
type ClientConfig struct {
	// Base URL of the Prism Node resolver; scheme, hostname, and
	// optional port, with no path or trailing slash.
	ResolverURL string
	// Ledger used when a call doesn't specify one. May be empty, in
	// which case the resolver picks its own default.
	DefaultLedger string
	// Optional User-Agent header value
	UserAgent string
}

// Client resolves did:prism identifiers against a remote Prism Node
// over HTTP. It holds no mutable state beyond its configuration and is
// safe for concurrent use; connection pooling and timeout policy belong
// to the underlying HTTP client.
type Client struct {
	HTTPClient    *http.Client
	ResolverURL   string
	DefaultLedger string
	UserAgent     string
}

// NewClient creates a Client using the provided HTTP client. Errors if
// httpClient is nil; use DefaultClient to get a ready-made transport.
func NewClient(httpClient *http.Client, cfg ClientConfig) (*Client, error) {
	if httpClient == nil {
		return nil, ErrNoHTTPClient
	}
	return &Client{
		HTTPClient:    httpClient,
		ResolverURL:   strings.TrimSuffix(cfg.ResolverURL, "/"),
		DefaultLedger: cfg.DefaultLedger,
		UserAgent:     cfg.UserAgent,
	}, nil
}

// DefaultClient creates a Client with an instrumented HTTP transport
// and a reasonable timeout.
func DefaultClient(cfg ClientConfig) *Client {
	c, _ := NewClient(&http.Client{
		Timeout:   defaultClientTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, cfg)
	return c
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return "go-didprism/" + versioninfo.Short()
}

// ledgerFor applies the call-level override, falling back to the
// configured default ledger.
func (c *Client) ledgerFor(ledger string) string {
	if ledger != "" {
		return ledger
	}
	return c.DefaultLedger
}

// get performs a single resolution request and returns the raw body.
// Non-2xx responses become a *ResolutionError carrying the status code
// and the body text verbatim.
func (c *Client) get(ctx context.Context, relURL string, accept string) ([]byte, error) {
	if c.HTTPClient == nil {
		return nil, ErrNoHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.ResolverURL+relURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResolutionError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// emptyBody reports whether a success body carries no payload at all.
// The resolver occasionally answers 2xx with nothing; that's treated as
// an empty result rather than an error.
func emptyBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ResolveResult resolves a DID to its full resolution result: document
// plus resolution and document metadata. The ledger argument overrides
// the client's default ledger; pass "" to use the default.
func (c *Client) ResolveResult(ctx context.Context, did string, opts *ResolutionOptions, ledger string) (*ResolutionResult, error) {
	if did == "" {
		return nil, ErrEmptyDID
	}

	body, err := c.get(ctx, buildResolveURL(did, opts, c.ledgerFor(ledger)), AcceptResolutionResult)
	if err != nil {
		return nil, err
	}

	var result ResolutionResult
	if emptyBody(body) {
		return &result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse resolution result: %w", err)
	}
	return &result, nil
}

// ResolveDocument resolves a DID to its bare DID document. The accept
// argument selects the response media type ("" means
// application/did+ld+json); ledger behaves as in ResolveResult.
func (c *Client) ResolveDocument(ctx context.Context, did string, opts *ResolutionOptions, ledger string, accept string) (*Document, error) {
	if did == "" {
		return nil, ErrEmptyDID
	}
	if accept == "" {
		accept = AcceptDIDLDJSON
	}

	body, err := c.get(ctx, buildResolveURL(did, opts, c.ledgerFor(ledger)), accept)
	if err != nil {
		return nil, err
	}

	var doc Document
	if emptyBody(body) {
		return &doc, nil
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse DID document: %w", err)
	}
	return &doc, nil
}
