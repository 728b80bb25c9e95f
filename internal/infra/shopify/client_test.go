package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/remodely/auth-service/internal/infra/config"
)

func testClient() *Client {
	return NewClient(config.ShopifySettings{
		APIKey:       "test-key",
		APISecret:    "test-secret",
		Scopes:       "read_products",
		APIVersion:   "2024-01",
		RedirectBase: "https://auth.example.com",
	})
}

func TestNormalizeShopDomain(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"shop1", "shop1.myshopify.com", true},
		{"shop1.myshopify.com", "shop1.myshopify.com", true},
		{"https://shop1.myshopify.com", "shop1.myshopify.com", true},
		{"https://shop1.myshopify.com/admin", "shop1.myshopify.com", true},
		{"  Shop-2.MYSHOPIFY.COM  ", "shop-2.myshopify.com", true},
		{"", "", false},
		{"-leading-dash", "", false},
		{"bad domain", "", false},
		{"evil.com/shop1", "", false},
	}

	for _, tc := range cases {
		got, err := NormalizeShopDomain(tc.input)
		if tc.ok {
			if err != nil {
				t.Errorf("NormalizeShopDomain(%q) returned error: %v", tc.input, err)
				continue
			}
			if got != tc.want {
				t.Errorf("NormalizeShopDomain(%q) = %q, want %q", tc.input, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("NormalizeShopDomain(%q) = %q, want error", tc.input, got)
		}
	}
}

func signQuery(secret string, query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	// Shopify signs the lexicographically sorted parameters.
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyCallbackHMACAcceptsValidSignature(t *testing.T) {
	c := testClient()

	query := url.Values{}
	query.Set("code", "abc123")
	query.Set("shop", "shop1.myshopify.com")
	query.Set("state", "state-token")
	query.Set("timestamp", "1700000000")
	query.Set("hmac", signQuery("test-secret", query))

	if !c.VerifyCallbackHMAC(query) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyCallbackHMACRejectsTamperedQuery(t *testing.T) {
	c := testClient()

	query := url.Values{}
	query.Set("code", "abc123")
	query.Set("shop", "shop1.myshopify.com")
	query.Set("state", "state-token")
	query.Set("hmac", signQuery("test-secret", query))

	query.Set("shop", "attacker.myshopify.com")
	if c.VerifyCallbackHMAC(query) {
		t.Fatal("expected tampered query to fail verification")
	}
}

func TestVerifyCallbackHMACRejectsMissingSignature(t *testing.T) {
	c := testClient()

	query := url.Values{}
	query.Set("code", "abc123")
	if c.VerifyCallbackHMAC(query) {
		t.Fatal("expected missing hmac to fail verification")
	}
}

func TestAuthorizeURL(t *testing.T) {
	c := testClient()

	raw := c.AuthorizeURL("shop1.myshopify.com", "state-token")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthorizeURL produced unparseable URL: %v", err)
	}
	if parsed.Host != "shop1.myshopify.com" {
		t.Fatalf("expected shop host, got %q", parsed.Host)
	}
	q := parsed.Query()
	if q.Get("client_id") != "test-key" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") != "state-token" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("redirect_uri") != "https://auth.example.com/api/shopify/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestNextPageInfo(t *testing.T) {
	header := `<https://shop1.myshopify.com/admin/api/2024-01/products.json?limit=50&page_info=cursor123>; rel="next"`
	if got := NextPageInfo(header); got != "cursor123" {
		t.Fatalf("NextPageInfo = %q, want cursor123", got)
	}

	prevOnly := `<https://shop1.myshopify.com/admin/api/2024-01/products.json?page_info=prev1>; rel="previous"`
	if got := NextPageInfo(prevOnly); got != "" {
		t.Fatalf("expected empty cursor for previous-only header, got %q", got)
	}

	if got := NextPageInfo(""); got != "" {
		t.Fatalf("expected empty cursor for empty header, got %q", got)
	}
}
