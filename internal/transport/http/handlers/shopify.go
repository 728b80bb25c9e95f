package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/infra/shopify"
	"github.com/remodely/auth-service/internal/transport/http/middleware"
	"github.com/remodely/auth-service/internal/usecase"
)

// ShopifyHandler exposes the store linking flow and store management API.
type ShopifyHandler struct {
	links          *usecase.StoreLinkService
	auth           *usecase.AuthService
	clientRedirect string
	log            *zap.Logger
}

// NewShopifyHandler constructs ShopifyHandler. clientRedirect is the
// client-scheme URL the browser callback bounces back to.
func NewShopifyHandler(links *usecase.StoreLinkService, auth *usecase.AuthService, clientRedirect string, log *zap.Logger) *ShopifyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShopifyHandler{
		links:          links,
		auth:           auth,
		clientRedirect: clientRedirect,
		log:            log,
	}
}

// RegisterRoutes binds the store linking routes. The callback is
// state-verified rather than bearer-authed: the browser arrives there
// from the provider without our token.
func (h *ShopifyHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/callback", h.callback)

	authed := r.Group("", middleware.RequireAuth(h.auth))
	authed.POST("/oauth/authorize", h.authorize)
	authed.POST("/oauth/token", h.exchangeToken)
	authed.GET("/stores", h.listStores)
	authed.GET("/status", h.status)
	authed.DELETE("/stores/:id", h.disconnect)
	authed.GET("/products", h.listProducts)
}

func (h *ShopifyHandler) authorize(c *gin.Context) {
	var req AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request payload", err.Error()))
		return
	}

	userID := middleware.AuthenticatedUserID(c)
	authz, err := h.links.BeginAuthorization(c.Request.Context(), userID, req.StoreDomain)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: shopify.ErrInvalidShopDomain, Status: http.StatusBadRequest, Message: "invalid store domain"},
		}, http.StatusInternalServerError, "could not start authorization")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"url":     authz.URL,
		"state":   authz.State,
	})
}

func (h *ShopifyHandler) callback(c *gin.Context) {
	store, err := h.links.CompleteCallback(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.log.Warn("store link callback failed", zap.Error(err))
		h.redirectToClient(c, url.Values{"error": {callbackErrorCode(err)}})
		return
	}

	h.redirectToClient(c, url.Values{
		"success": {"true"},
		"shop":    {store.StoreDomain},
	})
}

// callbackErrorCode maps flow failures to the codes the client
// understands. Callback errors are specific because they land on a
// machine-parsed redirect URI, not a human-facing form.
func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, usecase.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, usecase.ErrInvalidSignature):
		return "invalid_hmac"
	case errors.Is(err, usecase.ErrExchangeFailed):
		return "token_exchange_failed"
	default:
		return "server_error"
	}
}

func (h *ShopifyHandler) redirectToClient(c *gin.Context, params url.Values) {
	target := h.clientRedirect
	if len(params) > 0 {
		separator := "?"
		if u, err := url.Parse(target); err == nil && u.RawQuery != "" {
			separator = "&"
		}
		target += separator + params.Encode()
	}

	c.Redirect(http.StatusFound, target)
}

func (h *ShopifyHandler) exchangeToken(c *gin.Context) {
	var req TokenExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request payload", err.Error()))
		return
	}

	userID := middleware.AuthenticatedUserID(c)
	store, err := h.links.ExchangeDirect(c.Request.Context(), userID, req.Shop, req.Code, req.State)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: shopify.ErrInvalidShopDomain, Status: http.StatusBadRequest, Message: "invalid store domain"},
			{Err: usecase.ErrExchangeFailed, Status: http.StatusBadRequest, Message: "token exchange failed"},
		}, http.StatusInternalServerError, "could not link store")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"store":   NewStoreView(*store),
	})
}

func (h *ShopifyHandler) listStores(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	stores, err := h.links.ListStores(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse("could not list stores"))
		return
	}

	views := make([]StoreView, 0, len(stores))
	for _, store := range stores {
		views = append(views, NewStoreView(store))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stores":  views,
	})
}

func (h *ShopifyHandler) status(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	store, err := h.links.Status(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse("could not resolve store status"))
		return
	}

	if store == nil {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"connected": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"connected": true,
		"store":     NewStoreView(*store),
	})
}

func (h *ShopifyHandler) disconnect(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if err := h.links.Disconnect(c.Request.Context(), userID, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrStoreNotFound, Status: http.StatusNotFound, Message: "store not found"},
		}, http.StatusInternalServerError, "could not disconnect store")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "store disconnected"})
}

func (h *ShopifyHandler) listProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse("invalid limit"))
			return
		}
		limit = parsed
	}

	userID := middleware.AuthenticatedUserID(c)
	page, err := h.links.ListProducts(c.Request.Context(), userID, limit, c.Query("page_info"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoLinkedStore, Status: http.StatusNotFound, Message: "no linked store"},
			{Err: shopify.ErrUpstream, Status: http.StatusBadGateway, Message: "store provider unavailable"},
		}, http.StatusInternalServerError, "could not list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": page.Products,
		"pagination": gin.H{
			"nextPageInfo": page.NextPageInfo,
			"hasNext":      page.NextPageInfo != "",
		},
	})
}
