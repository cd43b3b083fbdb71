// Package mist is a typed client for the Juniper Mist cloud REST API,
// covering the endpoints the console needs: token introspection, site and
// WLAN enumeration, guest authorizations, and connected-client stats.
package mist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mistops/guestgate/internal/logging"
	"github.com/mistops/guestgate/internal/metrics"
)

// pageLimit is the page size requested from paginated list endpoints.
const pageLimit = 1000

// Client talks to one Mist cloud (api.mist.com, api.eu.mist.com, ...).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the full base URL (scheme included). Used by tests
// to point the client at an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a client for the given API host and token.
func NewClient(host, token string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL: "https://" + host,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.WithComponent("mist"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRaw issues one request and returns the response body. op labels the
// upstream metrics so per-endpoint latency is visible without exploding
// cardinality on resource IDs.
func (c *Client) doRaw(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	c.logger.Debug("mist request", "op", op, "method", method, "path", path)

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	m := metrics.Get()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	m.UpstreamLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("mist request failed: %w", err)
	}
	defer resp.Body.Close()

	m.UpstreamRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read mist response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.MistLog("warn", "%s %s failed with status %d", method, path, resp.StatusCode)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
		}
	}

	return data, nil
}

// do issues a request and decodes the JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	data, err := c.doRaw(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode mist response: %w", err)
	}
	return nil
}

// errorDetail pulls the vendor "detail" message out of an error body.
func errorDetail(data []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return ""
}

// decodeList accepts both response shapes the vendor uses for lists:
// a bare JSON array, or an envelope {"results": [...]}.
func decodeList[T any](data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode mist list response: %w", err)
	}
	return envelope.Results, nil
}

// listAll follows limit/page pagination until a short page is returned.
func listAll[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageLimit))

	var all []T
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))
		data, err := c.doRaw(ctx, op, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}
		items, err := decodeList[T](data)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < pageLimit {
			return all, nil
		}
	}
}

// GetSelf returns info about the API token, including its privileges.
func (c *Client) GetSelf(ctx context.Context) (*Self, error) {
	var self Self
	if err := c.do(ctx, "get_self", http.MethodGet, "/api/v1/self", nil, nil, &self); err != nil {
		return nil, err
	}
	return &self, nil
}

// GetOrg returns one organization.
func (c *Client) GetOrg(ctx context.Context, orgID string) (*Org, error) {
	var org Org
	path := "/api/v1/orgs/" + url.PathEscape(orgID)
	if err := c.do(ctx, "get_org", http.MethodGet, path, nil, nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// ListSites returns all sites in the organization.
func (c *Client) ListSites(ctx context.Context, orgID string) ([]Site, error) {
	path := "/api/v1/orgs/" + url.PathEscape(orgID) + "/sites"
	return listAll[Site](ctx, c, "list_sites", path)
}

// ListOrgWLANs returns the organization-level WLAN configurations.
func (c *Client) ListOrgWLANs(ctx context.Context, orgID string) ([]WLAN, error) {
	path := "/api/v1/orgs/" + url.PathEscape(orgID) + "/wlans"
	return listAll[WLAN](ctx, c, "list_org_wlans", path)
}

// ListSiteWLANs returns the site-level WLAN configurations.
func (c *Client) ListSiteWLANs(ctx context.Context, siteID string) ([]WLAN, error) {
	path := "/api/v1/sites/" + url.PathEscape(siteID) + "/wlans"
	return listAll[WLAN](ctx, c, "list_site_wlans", path)
}

// GetTemplate returns one org WLAN template.
func (c *Client) GetTemplate(ctx context.Context, orgID, templateID string) (*Template, error) {
	var tmpl Template
	path := "/api/v1/orgs/" + url.PathEscape(orgID) + "/templates/" + url.PathEscape(templateID)
	if err := c.do(ctx, "get_template", http.MethodGet, path, nil, nil, &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// GetSiteGroup returns one sitegroup.
func (c *Client) GetSiteGroup(ctx context.Context, orgID, sitegroupID string) (*SiteGroup, error) {
	var sg SiteGroup
	path := "/api/v1/orgs/" + url.PathEscape(orgID) + "/sitegroups/" + url.PathEscape(sitegroupID)
	if err := c.do(ctx, "get_sitegroup", http.MethodGet, path, nil, nil, &sg); err != nil {
		return nil, err
	}
	return &sg, nil
}

// ListSiteGuests returns guest authorizations for a site, optionally
// filtered by WLAN.
func (c *Client) ListSiteGuests(ctx context.Context, siteID, wlanID string) ([]GuestAuthorization, error) {
	path := "/api/v1/sites/" + url.PathEscape(siteID) + "/guests"
	query := url.Values{}
	if wlanID != "" {
		query.Set("wlan_id", wlanID)
	}
	data, err := c.doRaw(ctx, "list_site_guests", http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[GuestAuthorization](data)
}

// ListOrgGuests returns guest authorizations at the org level.
func (c *Client) ListOrgGuests(ctx context.Context, orgID string) ([]GuestAuthorization, error) {
	path := "/api/v1/orgs/" + url.PathEscape(orgID) + "/guests"
	data, err := c.doRaw(ctx, "list_org_guests", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[GuestAuthorization](data)
}

// UpsertSiteGuest creates or updates a site-level guest authorization.
// The vendor uses the same PUT endpoint for both.
func (c *Client) UpsertSiteGuest(ctx context.Context, siteID, mac string, body *GuestUpsert) error {
	path := "/api/v1/sites/" + url.PathEscape(siteID) + "/guests/" + url.PathEscape(mac)
	return c.do(ctx, "upsert_site_guest", http.MethodPut, path, nil, body, nil)
}

// UpsertOrgGuest creates or updates an org-level guest authorization.
func (c *Client) UpsertOrgGuest(ctx context.Context, orgID, mac string, body *GuestUpsert) error {
	path := "/api/v1/orgs/" + url.PathEscape(orgID) + "/guests/" + url.PathEscape(mac)
	return c.do(ctx, "upsert_org_guest", http.MethodPut, path, nil, body, nil)
}

// ListClientStats returns currently connected wireless clients for a site.
func (c *Client) ListClientStats(ctx context.Context, siteID string) ([]ClientStat, error) {
	path := "/api/v1/sites/" + url.PathEscape(siteID) + "/stats/clients"
	return listAll[ClientStat](ctx, c, "list_client_stats", path)
}
