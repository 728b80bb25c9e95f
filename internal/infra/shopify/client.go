package shopify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/remodely/auth-service/internal/infra/config"
)

const shopSuffix = ".myshopify.com"

// shopNameRegex constrains the subdomain part of a shop domain. Validating
// once here keeps attacker-influenced strings out of outbound URLs.
var shopNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

var (
	// ErrInvalidShopDomain indicates the supplied domain cannot be a
	// Shopify shop.
	ErrInvalidShopDomain = errors.New("shopify: invalid shop domain")
	// ErrUpstream indicates the Admin API returned a non-2xx response or
	// was unreachable.
	ErrUpstream = errors.New("shopify: upstream request failed")
)

// Shop is the subset of shop metadata the linking flow denormalizes.
type Shop struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Currency string `json:"currency"`
}

// Product is a minimal product view returned by the listing proxy.
type Product struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
	Vendor string `json:"vendor"`
	Status string `json:"status"`
}

// Client talks to the Shopify OAuth and Admin endpoints for a configured
// app (client id/secret pair).
type Client struct {
	cfg    config.ShopifySettings
	client *http.Client
}

// NewClient constructs a Shopify API client.
func NewClient(cfg config.ShopifySettings) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// NormalizeShopDomain canonicalizes user input ("shop1", "shop1.myshopify.com",
// "https://shop1.myshopify.com/") into "shop1.myshopify.com".
func NormalizeShopDomain(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSuffix(s, shopSuffix)

	if !shopNameRegex.MatchString(s) {
		return "", ErrInvalidShopDomain
	}

	return s + shopSuffix, nil
}

// AuthorizeURL builds the provider authorization URL for the given shop
// and CSRF state.
func (c *Client) AuthorizeURL(shopDomain, state string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.APIKey)
	q.Set("scope", c.cfg.Scopes)
	q.Set("redirect_uri", c.RedirectURI())
	q.Set("state", state)

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shopDomain, q.Encode())
}

// RedirectURI returns the fixed public callback URL registered with the app.
func (c *Client) RedirectURI() string {
	return strings.TrimRight(c.cfg.RedirectBase, "/") + "/api/shopify/callback"
}

// VerifyCallbackHMAC recomputes the callback signature over the sorted
// query parameters (excluding hmac itself) and compares in constant time.
func (c *Client) VerifyCallbackHMAC(query url.Values) bool {
	provided := query.Get("hmac")
	if provided == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}

type exchangeRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// ExchangeCode swaps the authorization code for an access token. The POST
// is never retried: the provider may already have consumed the one-time code.
func (c *Client) ExchangeCode(ctx context.Context, shopDomain, code string) (accessToken, scope string, err error) {
	body, err := json.Marshal(exchangeRequest{
		ClientID:     c.cfg.APIKey,
		ClientSecret: c.cfg.APISecret,
		Code:         code,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal exchange payload: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("%w: token exchange status %d", ErrUpstream, resp.StatusCode)
	}

	var payload exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("decode exchange response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", "", fmt.Errorf("%w: exchange response missing access_token", ErrUpstream)
	}

	return payload.AccessToken, payload.Scope, nil
}

// GetShop fetches shop metadata using the stored access token.
func (c *Client) GetShop(ctx context.Context, shopDomain, accessToken string) (*Shop, error) {
	var payload struct {
		Shop Shop `json:"shop"`
	}

	path := fmt.Sprintf("/admin/api/%s/shop.json", c.cfg.APIVersion)
	if _, err := c.getJSON(ctx, shopDomain, accessToken, path, nil, &payload); err != nil {
		return nil, err
	}

	return &payload.Shop, nil
}

// CountProducts returns the shop's product count.
func (c *Client) CountProducts(ctx context.Context, shopDomain, accessToken string) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}

	path := fmt.Sprintf("/admin/api/%s/products/count.json", c.cfg.APIVersion)
	if _, err := c.getJSON(ctx, shopDomain, accessToken, path, nil, &payload); err != nil {
		return 0, err
	}

	return payload.Count, nil
}

// ListProducts proxies a paginated product read. The provider's cursor is
// surfaced as an opaque nextPageInfo token taken from the Link header.
func (c *Client) ListProducts(ctx context.Context, shopDomain, accessToken string, limit int, pageInfo string) ([]Product, string, error) {
	if limit <= 0 || limit > 250 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	if pageInfo != "" {
		query.Set("page_info", pageInfo)
	}

	var payload struct {
		Products []Product `json:"products"`
	}

	path := fmt.Sprintf("/admin/api/%s/products.json", c.cfg.APIVersion)
	header, err := c.getJSON(ctx, shopDomain, accessToken, path, query, &payload)
	if err != nil {
		return nil, "", err
	}

	return payload.Products, NextPageInfo(header.Get("Link")), nil
}

// getJSON performs an authenticated Admin API GET with a single retry on
// transient failure. GETs are safe to repeat; writes are not retried.
func (c *Client) getJSON(ctx context.Context, shopDomain, accessToken, path string, query url.Values, out any) (http.Header, error) {
	endpoint := fmt.Sprintf("https://%s%s", shopDomain, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create admin api request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUpstream, err)
			continue
		}

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: admin api status %d", ErrUpstream, resp.StatusCode)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: admin api status %d", ErrUpstream, resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		header := resp.Header
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode admin api response: %w", err)
		}

		return header, nil
	}

	return nil, lastErr
}

var linkNextRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// NextPageInfo extracts the page_info cursor from a Shopify Link header,
// returning "" when there is no next page.
func NextPageInfo(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}

	matches := linkNextRegex.FindStringSubmatch(linkHeader)
	if len(matches) != 2 {
		return ""
	}

	parsed, err := url.Parse(matches[1])
	if err != nil {
		return ""
	}

	return parsed.Query().Get("page_info")
}
