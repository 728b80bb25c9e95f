package usecase

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/infra/shopify"
	"github.com/remodely/auth-service/internal/repository"
)

type mockUserRepository struct {
	mu sync.Mutex

	createErr   error
	createCalls int
	createdUser domain.User

	getByIDResult *domain.User
	getByIDErr    error

	getByEmailResult *domain.User
	getByEmailErr    error

	getByEmailOrPhoneResult *domain.User
	getByEmailOrPhoneErr    error

	updateLastLoginErr   error
	updateLastLoginCalls int
	updateLastLoginAt    time.Time

	setCodeErr       error
	setCodeCalls     int
	setCodeValue     string
	setCodeExpiresAt time.Time

	markVerifiedErr   error
	markVerifiedCalls int
	markVerifiedAt    time.Time
}

func (m *mockUserRepository) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.createdUser = user
	return m.createErr
}

func (m *mockUserRepository) GetByID(_ context.Context, _ string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	if m.getByIDResult == nil {
		return nil, repository.ErrNotFound
	}
	clone := *m.getByIDResult
	return &clone, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	if m.getByEmailErr != nil {
		return nil, m.getByEmailErr
	}
	if m.getByEmailResult == nil {
		return nil, repository.ErrNotFound
	}
	clone := *m.getByEmailResult
	return &clone, nil
}

func (m *mockUserRepository) GetByEmailOrPhone(_ context.Context, _, _ string) (*domain.User, error) {
	if m.getByEmailOrPhoneErr != nil {
		return nil, m.getByEmailOrPhoneErr
	}
	if m.getByEmailOrPhoneResult == nil {
		return nil, repository.ErrNotFound
	}
	clone := *m.getByEmailOrPhoneResult
	return &clone, nil
}

func (m *mockUserRepository) UpdateLastLogin(_ context.Context, _ string, at time.Time) error {
	m.updateLastLoginCalls++
	m.updateLastLoginAt = at
	return m.updateLastLoginErr
}

func (m *mockUserRepository) SetVerificationCode(_ context.Context, _ string, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCodeCalls++
	m.setCodeValue = code
	m.setCodeExpiresAt = expiresAt
	return m.setCodeErr
}

func (m *mockUserRepository) MarkPhoneVerified(_ context.Context, _ string, at time.Time) error {
	m.markVerifiedCalls++
	m.markVerifiedAt = at
	return m.markVerifiedErr
}

type mockSMSDispatcher struct {
	sendErr   error
	sendCalls int
	lastPhone string
	lastBody  string
}

func (m *mockSMSDispatcher) Send(_ context.Context, phone, message string) error {
	m.sendCalls++
	m.lastPhone = phone
	m.lastBody = message
	return m.sendErr
}

type mockEventPublisher struct {
	registered   []domain.UserRegisteredEvent
	loggedIn     []domain.UserLoggedInEvent
	verified     []domain.PhoneVerifiedEvent
	linked       []domain.StoreLinkedEvent
	disconnected []domain.StoreDisconnectedEvent
}

func (m *mockEventPublisher) PublishUserRegistered(_ context.Context, e domain.UserRegisteredEvent) error {
	m.registered = append(m.registered, e)
	return nil
}

func (m *mockEventPublisher) PublishUserLoggedIn(_ context.Context, e domain.UserLoggedInEvent) error {
	m.loggedIn = append(m.loggedIn, e)
	return nil
}

func (m *mockEventPublisher) PublishPhoneVerified(_ context.Context, e domain.PhoneVerifiedEvent) error {
	m.verified = append(m.verified, e)
	return nil
}

func (m *mockEventPublisher) PublishStoreLinked(_ context.Context, e domain.StoreLinkedEvent) error {
	m.linked = append(m.linked, e)
	return nil
}

func (m *mockEventPublisher) PublishStoreDisconnected(_ context.Context, e domain.StoreDisconnectedEvent) error {
	m.disconnected = append(m.disconnected, e)
	return nil
}

type mockStoreRepository struct {
	upsertErr    error
	upsertCalls  int
	upsertInput  domain.LinkedStore
	upsertResult *domain.LinkedStore

	getByIDResult *domain.LinkedStore
	getByIDErr    error

	listResult []domain.LinkedStore
	listErr    error

	mostRecentResult *domain.LinkedStore
	mostRecentErr    error

	deactivateErr    error
	deactivateCalls  int
	deactivateLastID string
}

func (m *mockStoreRepository) Upsert(_ context.Context, store domain.LinkedStore) (*domain.LinkedStore, error) {
	m.upsertCalls++
	m.upsertInput = store
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if m.upsertResult != nil {
		clone := *m.upsertResult
		return &clone, nil
	}
	clone := store
	return &clone, nil
}

func (m *mockStoreRepository) GetByID(_ context.Context, _ string) (*domain.LinkedStore, error) {
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	if m.getByIDResult == nil {
		return nil, repository.ErrNotFound
	}
	clone := *m.getByIDResult
	return &clone, nil
}

func (m *mockStoreRepository) ListActiveByOwner(_ context.Context, _ string) ([]domain.LinkedStore, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listResult, nil
}

func (m *mockStoreRepository) MostRecentActiveByOwner(_ context.Context, _ string) (*domain.LinkedStore, error) {
	if m.mostRecentErr != nil {
		return nil, m.mostRecentErr
	}
	if m.mostRecentResult == nil {
		return nil, repository.ErrNotFound
	}
	clone := *m.mostRecentResult
	return &clone, nil
}

func (m *mockStoreRepository) Deactivate(_ context.Context, id string) error {
	m.deactivateCalls++
	m.deactivateLastID = id
	return m.deactivateErr
}

type mockPendingAuthStore struct {
	mu      sync.Mutex
	entries map[string]domain.PendingAuthorization

	putErr     error
	putCalls   int
	lastTTL    time.Duration
	consumeErr error
}

func newMockPendingAuthStore() *mockPendingAuthStore {
	return &mockPendingAuthStore{entries: map[string]domain.PendingAuthorization{}}
}

func (m *mockPendingAuthStore) Put(_ context.Context, pending domain.PendingAuthorization, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	m.lastTTL = ttl
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[pending.State] = pending
	return nil
}

func (m *mockPendingAuthStore) Consume(_ context.Context, state string) (*domain.PendingAuthorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	pending, ok := m.entries[state]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.entries, state)
	return &pending, nil
}

type mockShopProvider struct {
	hmacValid bool

	exchangeToken string
	exchangeScope string
	exchangeErr   error
	exchangeCalls int
	exchangedShop string
	exchangedCode string

	shop    *shopify.Shop
	shopErr error

	productCount    int
	productCountErr error

	products     []shopify.Product
	nextPageInfo string
	productsErr  error
}

func (m *mockShopProvider) AuthorizeURL(shopDomain, state string) string {
	return "https://" + shopDomain + "/admin/oauth/authorize?state=" + state
}

func (m *mockShopProvider) VerifyCallbackHMAC(_ url.Values) bool {
	return m.hmacValid
}

func (m *mockShopProvider) ExchangeCode(_ context.Context, shopDomain, code string) (string, string, error) {
	m.exchangeCalls++
	m.exchangedShop = shopDomain
	m.exchangedCode = code
	if m.exchangeErr != nil {
		return "", "", m.exchangeErr
	}
	return m.exchangeToken, m.exchangeScope, nil
}

func (m *mockShopProvider) GetShop(_ context.Context, _, _ string) (*shopify.Shop, error) {
	if m.shopErr != nil {
		return nil, m.shopErr
	}
	if m.shop == nil {
		return nil, errors.New("no shop configured")
	}
	clone := *m.shop
	return &clone, nil
}

func (m *mockShopProvider) CountProducts(_ context.Context, _, _ string) (int, error) {
	if m.productCountErr != nil {
		return 0, m.productCountErr
	}
	return m.productCount, nil
}

func (m *mockShopProvider) ListProducts(_ context.Context, _, _ string, _ int, _ string) ([]shopify.Product, string, error) {
	if m.productsErr != nil {
		return nil, "", m.productsErr
	}
	return m.products, m.nextPageInfo, nil
}
