package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/infra/security"
	"github.com/remodely/auth-service/internal/infra/shopify"
	"github.com/remodely/auth-service/internal/repository"
)

var (
	// ErrInvalidState indicates the callback state is unknown, expired,
	// or already consumed.
	ErrInvalidState = errors.New("oauth state invalid or expired")
	// ErrInvalidSignature indicates the callback HMAC did not verify.
	ErrInvalidSignature = errors.New("callback signature invalid")
	// ErrExchangeFailed indicates the provider rejected the code exchange.
	ErrExchangeFailed = errors.New("token exchange failed")
	// ErrStoreNotFound indicates no matching linked store for the caller.
	ErrStoreNotFound = errors.New("store not found")
	// ErrNoLinkedStore indicates the caller has no active store at all.
	ErrNoLinkedStore = errors.New("no linked store")
)

// ShopProvider is the slice of the Shopify client the linking flow needs.
type ShopProvider interface {
	AuthorizeURL(shopDomain, state string) string
	VerifyCallbackHMAC(query url.Values) bool
	ExchangeCode(ctx context.Context, shopDomain, code string) (accessToken, scope string, err error)
	GetShop(ctx context.Context, shopDomain, accessToken string) (*shopify.Shop, error)
	CountProducts(ctx context.Context, shopDomain, accessToken string) (int, error)
	ListProducts(ctx context.Context, shopDomain, accessToken string, limit int, pageInfo string) ([]shopify.Product, string, error)
}

// StoreLinkService drives the OAuth linking flow and the linked-store
// management operations.
type StoreLinkService struct {
	stores   port.StoreRepository
	pending  port.PendingAuthStore
	provider ShopProvider
	events   port.EventPublisher
	stateTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewStoreLinkService constructs a store link service.
func NewStoreLinkService(stores port.StoreRepository, pending port.PendingAuthStore, provider ShopProvider, events port.EventPublisher, stateTTL time.Duration, log *zap.Logger) *StoreLinkService {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreLinkService{
		stores:   stores,
		pending:  pending,
		provider: provider,
		events:   events,
		stateTTL: stateTTL,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *StoreLinkService) WithClock(clock func() time.Time) *StoreLinkService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Authorization is the outcome of BeginAuthorization: the URL to send the
// user's browser to, plus the state echoed for client bookkeeping.
type Authorization struct {
	URL   string
	State string
}

// BeginAuthorization normalizes the shop domain, records per-attempt CSRF
// state, and builds the provider authorization URL. Each call gets an
// independent state value, so one user may run several link attempts
// concurrently.
func (s *StoreLinkService) BeginAuthorization(ctx context.Context, userID, storeDomain string) (*Authorization, error) {
	shopDomain, err := shopify.NormalizeShopDomain(storeDomain)
	if err != nil {
		return nil, err
	}

	state, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	pending := domain.PendingAuthorization{
		State:       state,
		UserID:      userID,
		StoreDomain: shopDomain,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.pending.Put(ctx, pending, s.stateTTL); err != nil {
		return nil, fmt.Errorf("store pending authorization: %w", err)
	}

	return &Authorization{
		URL:   s.provider.AuthorizeURL(shopDomain, state),
		State: state,
	}, nil
}

// CompleteCallback finishes the browser-redirect leg of the flow. The
// state is consumed before anything else, so a replayed callback fails
// with ErrInvalidState no matter how the first attempt ended. Both the
// state and HMAC checks run before any network call to the provider.
func (s *StoreLinkService) CompleteCallback(ctx context.Context, query url.Values) (*domain.LinkedStore, error) {
	state := query.Get("state")
	if state == "" {
		return nil, ErrInvalidState
	}

	pending, err := s.pending.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Log a fingerprint, never the state itself. An unknown state
			// is either expiry or a replay, and replays are worth spotting.
			s.log.Warn("callback with unknown state",
				zap.String("state_hash", security.HashToken(state)))
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("consume pending authorization: %w", err)
	}

	if !s.provider.VerifyCallbackHMAC(query) {
		return nil, ErrInvalidSignature
	}

	// The shop parameter is attacker-visible; it must match the domain
	// the pending authorization was opened for.
	callbackShop, err := shopify.NormalizeShopDomain(query.Get("shop"))
	if err != nil || callbackShop != pending.StoreDomain {
		return nil, ErrInvalidSignature
	}

	return s.link(ctx, pending.UserID, pending.StoreDomain, query.Get("code"))
}

// ExchangeDirect performs the code exchange for callers that received the
// code out-of-band (native deep link). The caller's own authenticated
// identity becomes the owner; any state value supplied is consumed on a
// best-effort basis so it cannot be replayed through the callback path.
func (s *StoreLinkService) ExchangeDirect(ctx context.Context, userID, shop, code, state string) (*domain.LinkedStore, error) {
	shopDomain, err := shopify.NormalizeShopDomain(shop)
	if err != nil {
		return nil, err
	}

	if state != "" {
		if _, err := s.pending.Consume(ctx, state); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("consume pending authorization failed", zap.Error(err))
		}
	}

	return s.link(ctx, userID, shopDomain, code)
}

// link runs the exchange-and-upsert tail shared by both flow variants.
func (s *StoreLinkService) link(ctx context.Context, ownerUserID, shopDomain, code string) (*domain.LinkedStore, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrExchangeFailed
	}

	accessToken, scope, err := s.provider.ExchangeCode(ctx, shopDomain, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	// Metadata is a nicety. If the Admin API is having a bad day the
	// link still lands, with a name derived from the domain and a zero
	// resource count.
	displayName := strings.TrimSuffix(shopDomain, ".myshopify.com")
	currency := ""
	resourceCount := 0
	if shop, err := s.provider.GetShop(ctx, shopDomain, accessToken); err != nil {
		s.log.Warn("fetch shop metadata failed", zap.String("shop", shopDomain), zap.Error(err))
	} else {
		if shop.Name != "" {
			displayName = shop.Name
		}
		currency = shop.Currency
	}
	if count, err := s.provider.CountProducts(ctx, shopDomain, accessToken); err != nil {
		s.log.Warn("fetch product count failed", zap.String("shop", shopDomain), zap.Error(err))
	} else {
		resourceCount = count
	}

	now := s.now().UTC()
	store, err := s.stores.Upsert(ctx, domain.LinkedStore{
		ID:            uuid.NewString(),
		StoreDomain:   shopDomain,
		OwnerUserID:   ownerUserID,
		AccessToken:   accessToken,
		Scope:         scope,
		DisplayName:   displayName,
		ResourceCount: resourceCount,
		Currency:      currency,
		IsActive:      true,
		ConnectedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert linked store: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishStoreLinked(ctx, domain.StoreLinkedEvent{
			EventID:     uuid.NewString(),
			StoreID:     store.ID,
			StoreDomain: store.StoreDomain,
			OwnerUserID: store.OwnerUserID,
			LinkedAt:    now,
		}); err != nil {
			s.log.Warn("publish store.linked failed", zap.Error(err))
		}
	}

	return store, nil
}

// ListStores returns the caller's active stores, most recent first.
func (s *StoreLinkService) ListStores(ctx context.Context, userID string) ([]domain.LinkedStore, error) {
	stores, err := s.stores.ListActiveByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// Status reports the most recently connected active store, or a plain
// "not connected" when there is none.
func (s *StoreLinkService) Status(ctx context.Context, userID string) (*domain.LinkedStore, error) {
	store, err := s.stores.MostRecentActiveByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store status: %w", err)
	}
	return store, nil
}

// Disconnect soft-deletes a linked store after an ownership check. A
// store id belonging to someone else is reported exactly like a missing
// one.
func (s *StoreLinkService) Disconnect(ctx context.Context, userID, storeID string) error {
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStoreNotFound
		}
		return fmt.Errorf("lookup store: %w", err)
	}
	if store.OwnerUserID != userID || !store.IsActive {
		return ErrStoreNotFound
	}

	if err := s.stores.Deactivate(ctx, store.ID); err != nil {
		return fmt.Errorf("deactivate store: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishStoreDisconnected(ctx, domain.StoreDisconnectedEvent{
			EventID:        uuid.NewString(),
			StoreID:        store.ID,
			StoreDomain:    store.StoreDomain,
			OwnerUserID:    store.OwnerUserID,
			DisconnectedAt: s.now().UTC(),
		}); err != nil {
			s.log.Warn("publish store.disconnected failed", zap.Error(err))
		}
	}

	return nil
}

// ProductPage is one page of the proxied product listing.
type ProductPage struct {
	Products     []shopify.Product
	NextPageInfo string
}

// ListProducts proxies a product read against the caller's most recently
// connected store.
func (s *StoreLinkService) ListProducts(ctx context.Context, userID string, limit int, pageInfo string) (*ProductPage, error) {
	store, err := s.stores.MostRecentActiveByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoLinkedStore
		}
		return nil, fmt.Errorf("lookup store: %w", err)
	}

	products, next, err := s.provider.ListProducts(ctx, store.StoreDomain, store.AccessToken, limit, pageInfo)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &ProductPage{Products: products, NextPageInfo: next}, nil
}
