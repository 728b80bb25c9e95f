package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/infra/config"
	"github.com/remodely/auth-service/internal/infra/logger"
)

const tokenRefreshLeeway = 30 * time.Second

// FailureClass distinguishes retry-worthy gateway trouble from permanent
// rejections such as a malformed number.
type FailureClass int

const (
	// Transient covers network errors and gateway 5xx responses.
	Transient FailureClass = iota
	// Fatal covers gateway 4xx responses; retrying the same request will
	// not help.
	Fatal
)

// DispatchError wraps a gateway failure with its classification.
type DispatchError struct {
	Class FailureClass
	Err   error
}

func (e *DispatchError) Error() string {
	return e.Err.Error()
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient dispatch failure.
func IsTransient(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Class == Transient
}

// ErrNotConfigured signals that gateway credentials are absent; callers
// treat this like a transient failure and keep going.
var ErrNotConfigured = errors.New("sms: gateway credentials not configured")

// Gateway sends SMS through the Eskiz HTTP API. The bearer token obtained
// from the auth endpoint is cached under a mutex and refreshed on expiry.
type Gateway struct {
	cfg    config.SMSSettings
	client *http.Client
	log    *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewGateway constructs an SMS gateway client.
func NewGateway(cfg config.SMSSettings, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

type authResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
	Message string `json:"message"`
}

// Send delivers a message to the given phone number.
func (g *Gateway) Send(ctx context.Context, phone, message string) error {
	if !g.cfg.Configured() {
		return &DispatchError{Class: Transient, Err: ErrNotConfigured}
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"mobile_phone": strings.TrimPrefix(phone, "+"),
		"message":      message,
		"from":         g.cfg.From,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &DispatchError{Class: Fatal, Err: fmt.Errorf("marshal sms payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/message/sms/send", bytes.NewReader(body))
	if err != nil {
		return &DispatchError{Class: Fatal, Err: fmt.Errorf("create sms request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return &DispatchError{Class: Transient, Err: fmt.Errorf("execute sms request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		g.log.Info("sms dispatched", zap.String("phone", logger.MaskPhone(phone)))
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Token likely expired under us; drop it so the next call re-auths.
		g.mu.Lock()
		g.token = ""
		g.mu.Unlock()
		return &DispatchError{Class: Transient, Err: fmt.Errorf("sms gateway rejected token: %s", string(respBody))}
	case resp.StatusCode >= 500:
		return &DispatchError{Class: Transient, Err: fmt.Errorf("sms gateway error: status %d", resp.StatusCode)}
	default:
		return &DispatchError{Class: Fatal, Err: fmt.Errorf("sms rejected: status %d, body: %s", resp.StatusCode, string(respBody))}
	}
}

func (g *Gateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExpiry.Add(-tokenRefreshLeeway)) {
		return g.token, nil
	}

	payload := map[string]string{
		"email":    g.cfg.Email,
		"password": g.cfg.Secret,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &DispatchError{Class: Fatal, Err: fmt.Errorf("marshal auth payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", &DispatchError{Class: Fatal, Err: fmt.Errorf("create auth request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &DispatchError{Class: Transient, Err: fmt.Errorf("execute auth request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return "", &DispatchError{Class: Transient, Err: fmt.Errorf("read auth response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := Fatal
		if resp.StatusCode >= 500 {
			class = Transient
		}
		return "", &DispatchError{Class: class, Err: fmt.Errorf("sms auth failed: status %d", resp.StatusCode)}
	}

	var auth authResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return "", &DispatchError{Class: Transient, Err: fmt.Errorf("unmarshal auth response: %w", err)}
	}
	if auth.Data.Token == "" {
		return "", &DispatchError{Class: Transient, Err: errors.New("sms auth response missing token")}
	}

	g.token = auth.Data.Token
	// Eskiz tokens live for 30 days; refresh well ahead of that.
	g.tokenExpiry = time.Now().Add(29 * 24 * time.Hour)

	return g.token, nil
}

var _ port.SMSDispatcher = (*Gateway)(nil)
