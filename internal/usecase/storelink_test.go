package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/infra/shopify"
)

// The events parameter is the interface type on purpose: a nil *mock
// passed through a concrete parameter would arrive as a non-nil
// interface and defeat the publisher guard in the service.
func newLinkService(stores *mockStoreRepository, pending *mockPendingAuthStore, provider *mockShopProvider, events port.EventPublisher) *StoreLinkService {
	return NewStoreLinkService(stores, pending, provider, events, 10*time.Minute, nil)
}

func callbackQuery(state string) url.Values {
	q := url.Values{}
	q.Set("code", "auth-code")
	q.Set("state", state)
	q.Set("shop", "shop1.myshopify.com")
	q.Set("hmac", "deadbeef")
	return q
}

func TestBeginAuthorization(t *testing.T) {
	pending := newMockPendingAuthStore()
	provider := &mockShopProvider{}
	svc := newLinkService(&mockStoreRepository{}, pending, provider, nil)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}
	if len(authz.State) < 40 {
		t.Fatalf("expected a 32-byte random state token, got %q", authz.State)
	}
	if !strings.Contains(authz.URL, "shop1.myshopify.com") {
		t.Fatalf("expected normalized domain in URL, got %q", authz.URL)
	}
	if pending.lastTTL != 10*time.Minute {
		t.Fatalf("expected ten-minute TTL, got %v", pending.lastTTL)
	}

	stored, err := pending.Consume(context.Background(), authz.State)
	if err != nil {
		t.Fatalf("expected pending entry, got %v", err)
	}
	if stored.UserID != "u1" || stored.StoreDomain != "shop1.myshopify.com" {
		t.Fatalf("unexpected pending entry: %+v", stored)
	}
}

func TestBeginAuthorizationIndependentStates(t *testing.T) {
	pending := newMockPendingAuthStore()
	svc := newLinkService(&mockStoreRepository{}, pending, &mockShopProvider{}, nil)

	first, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}
	second, err := svc.BeginAuthorization(context.Background(), "u1", "shop2")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}
	if first.State == second.State {
		t.Fatal("expected independent state values per attempt")
	}
}

func TestBeginAuthorizationRejectsBadDomain(t *testing.T) {
	svc := newLinkService(&mockStoreRepository{}, newMockPendingAuthStore(), &mockShopProvider{}, nil)

	if _, err := svc.BeginAuthorization(context.Background(), "u1", "bad domain!"); !errors.Is(err, shopify.ErrInvalidShopDomain) {
		t.Fatalf("expected ErrInvalidShopDomain, got %v", err)
	}
}

func TestCompleteCallbackSuccess(t *testing.T) {
	pending := newMockPendingAuthStore()
	stores := &mockStoreRepository{}
	events := &mockEventPublisher{}
	provider := &mockShopProvider{
		hmacValid:     true,
		exchangeToken: "shpat_secret",
		exchangeScope: "read_products",
		shop:          &shopify.Shop{Name: "Shop One", Currency: "USD"},
		productCount:  42,
	}
	svc := newLinkService(stores, pending, provider, events)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}

	store, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State))
	if err != nil {
		t.Fatalf("CompleteCallback returned error: %v", err)
	}
	if store.OwnerUserID != "u1" {
		t.Fatalf("owner must come from the pending authorization, got %q", store.OwnerUserID)
	}
	if store.StoreDomain != "shop1.myshopify.com" {
		t.Fatalf("unexpected store domain %q", store.StoreDomain)
	}
	if store.AccessToken != "shpat_secret" || store.Scope != "read_products" {
		t.Fatalf("unexpected credentials: %+v", store)
	}
	if store.DisplayName != "Shop One" || store.ResourceCount != 42 || store.Currency != "USD" {
		t.Fatalf("unexpected metadata: %+v", store)
	}
	if !store.IsActive {
		t.Fatal("expected linked store to be active")
	}
	if provider.exchangedCode != "auth-code" {
		t.Fatalf("exchange used code %q", provider.exchangedCode)
	}
	if len(events.linked) != 1 {
		t.Fatalf("expected one linked event, got %d", len(events.linked))
	}
}

func TestCompleteCallbackUnknownState(t *testing.T) {
	svc := newLinkService(&mockStoreRepository{}, newMockPendingAuthStore(), &mockShopProvider{hmacValid: true}, nil)

	if _, err := svc.CompleteCallback(context.Background(), callbackQuery("bogus")); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCompleteCallbackStateIsSingleUse(t *testing.T) {
	pending := newMockPendingAuthStore()
	provider := &mockShopProvider{
		hmacValid:     true,
		exchangeToken: "shpat_secret",
		shop:          &shopify.Shop{Name: "Shop One"},
	}
	svc := newLinkService(&mockStoreRepository{}, pending, provider, nil)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}

	if _, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State)); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	if _, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected replay to fail with ErrInvalidState, got %v", err)
	}
}

func TestCompleteCallbackInvalidHMAC(t *testing.T) {
	pending := newMockPendingAuthStore()
	provider := &mockShopProvider{hmacValid: false}
	svc := newLinkService(&mockStoreRepository{}, pending, provider, nil)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}

	if _, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if provider.exchangeCalls != 0 {
		t.Fatal("expected no exchange call after signature failure")
	}
}

func TestCompleteCallbackShopMismatch(t *testing.T) {
	pending := newMockPendingAuthStore()
	provider := &mockShopProvider{hmacValid: true}
	svc := newLinkService(&mockStoreRepository{}, pending, provider, nil)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}

	query := callbackQuery(authz.State)
	query.Set("shop", "other.myshopify.com")
	if _, err := svc.CompleteCallback(context.Background(), query); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for mismatched shop, got %v", err)
	}
	if provider.exchangeCalls != 0 {
		t.Fatal("expected no exchange call for mismatched shop")
	}
}

func TestCompleteCallbackExchangeFailureConsumesState(t *testing.T) {
	pending := newMockPendingAuthStore()
	provider := &mockShopProvider{hmacValid: true, exchangeErr: errors.New("provider 401")}
	svc := newLinkService(&mockStoreRepository{}, pending, provider, nil)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}

	if _, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State)); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed, got %v", err)
	}

	// The spent state must not be replayable even though the exchange failed.
	if _, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on replay, got %v", err)
	}
}

func TestCompleteCallbackMetadataFailureStillLinks(t *testing.T) {
	pending := newMockPendingAuthStore()
	stores := &mockStoreRepository{}
	provider := &mockShopProvider{
		hmacValid:       true,
		exchangeToken:   "shpat_secret",
		shopErr:         errors.New("admin api down"),
		productCountErr: errors.New("admin api down"),
	}
	svc := newLinkService(stores, pending, provider, nil)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}

	store, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State))
	if err != nil {
		t.Fatalf("CompleteCallback returned error: %v", err)
	}
	if store.DisplayName != "shop1" {
		t.Fatalf("expected fallback display name shop1, got %q", store.DisplayName)
	}
	if store.ResourceCount != 0 {
		t.Fatalf("expected zero resource count fallback, got %d", store.ResourceCount)
	}
}

func TestExchangeDirectUsesCallerIdentity(t *testing.T) {
	stores := &mockStoreRepository{}
	provider := &mockShopProvider{
		exchangeToken: "shpat_secret",
		shop:          &shopify.Shop{Name: "Shop One"},
	}
	svc := newLinkService(stores, newMockPendingAuthStore(), provider, nil)

	store, err := svc.ExchangeDirect(context.Background(), "caller-7", "shop1", "auth-code", "")
	if err != nil {
		t.Fatalf("ExchangeDirect returned error: %v", err)
	}
	if store.OwnerUserID != "caller-7" {
		t.Fatalf("expected caller identity as owner, got %q", store.OwnerUserID)
	}
}

func TestExchangeDirectConsumesSuppliedState(t *testing.T) {
	pending := newMockPendingAuthStore()
	provider := &mockShopProvider{
		hmacValid:     true,
		exchangeToken: "shpat_secret",
		shop:          &shopify.Shop{Name: "Shop One"},
	}
	svc := newLinkService(&mockStoreRepository{}, pending, provider, nil)

	authz, err := svc.BeginAuthorization(context.Background(), "u1", "shop1")
	if err != nil {
		t.Fatalf("BeginAuthorization returned error: %v", err)
	}

	if _, err := svc.ExchangeDirect(context.Background(), "u1", "shop1", "auth-code", authz.State); err != nil {
		t.Fatalf("ExchangeDirect returned error: %v", err)
	}

	if _, err := svc.CompleteCallback(context.Background(), callbackQuery(authz.State)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected state to be spent, got %v", err)
	}
}

func TestDisconnectForeignStoreReportsNotFound(t *testing.T) {
	stores := &mockStoreRepository{getByIDResult: &domain.LinkedStore{
		ID:          "s1",
		OwnerUserID: "owner-a",
		IsActive:    true,
	}}
	svc := newLinkService(stores, newMockPendingAuthStore(), &mockShopProvider{}, nil)

	if err := svc.Disconnect(context.Background(), "owner-b", "s1"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound for foreign store, got %v", err)
	}
	if stores.deactivateCalls != 0 {
		t.Fatal("expected no deactivation")
	}
}

func TestDisconnectOwnStore(t *testing.T) {
	stores := &mockStoreRepository{getByIDResult: &domain.LinkedStore{
		ID:          "s1",
		StoreDomain: "shop1.myshopify.com",
		OwnerUserID: "owner-a",
		IsActive:    true,
	}}
	events := &mockEventPublisher{}
	svc := newLinkService(stores, newMockPendingAuthStore(), &mockShopProvider{}, events)

	if err := svc.Disconnect(context.Background(), "owner-a", "s1"); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}
	if stores.deactivateCalls != 1 || stores.deactivateLastID != "s1" {
		t.Fatalf("expected deactivation of s1, got %d calls for %q", stores.deactivateCalls, stores.deactivateLastID)
	}
	if len(events.disconnected) != 1 {
		t.Fatalf("expected one disconnected event, got %d", len(events.disconnected))
	}
}

func TestStatusNotConnected(t *testing.T) {
	svc := newLinkService(&mockStoreRepository{}, newMockPendingAuthStore(), &mockShopProvider{}, nil)

	store, err := svc.Status(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if store != nil {
		t.Fatalf("expected nil store for unlinked user, got %+v", store)
	}
}

func TestListProductsWithoutStore(t *testing.T) {
	svc := newLinkService(&mockStoreRepository{}, newMockPendingAuthStore(), &mockShopProvider{}, nil)

	if _, err := svc.ListProducts(context.Background(), "u1", 50, ""); !errors.Is(err, ErrNoLinkedStore) {
		t.Fatalf("expected ErrNoLinkedStore, got %v", err)
	}
}

func TestListProductsProxiesPage(t *testing.T) {
	stores := &mockStoreRepository{mostRecentResult: &domain.LinkedStore{
		ID:          "s1",
		StoreDomain: "shop1.myshopify.com",
		AccessToken: "shpat_secret",
		OwnerUserID: "u1",
		IsActive:    true,
	}}
	provider := &mockShopProvider{
		products:     []shopify.Product{{ID: 1, Title: "Granite Slab"}},
		nextPageInfo: "cursor123",
	}
	svc := newLinkService(stores, newMockPendingAuthStore(), provider, nil)

	page, err := svc.ListProducts(context.Background(), "u1", 50, "")
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(page.Products) != 1 || page.Products[0].Title != "Granite Slab" {
		t.Fatalf("unexpected products: %+v", page.Products)
	}
	if page.NextPageInfo != "cursor123" {
		t.Fatalf("expected cursor123, got %q", page.NextPageInfo)
	}
}
