package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/nonce"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
	"github.com/attid/MyMTLWalletBot-sub000/internal/services"
	"github.com/attid/MyMTLWalletBot-sub000/internal/signing"
)

// SignatureHeader carries the upstream's base64 ed25519 signature over
// the raw request body.
const SignatureHeader = "X-Request-ED25519-Signature"

// HealthHandler returns service health.
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// WebhookHandler verifies the inbound signature over the exact raw body
// bytes, parses the payload and hands it to the fan-out engine through
// the event bus.
func WebhookHandler(bus ports.EventBus, upstream ports.UpstreamClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil || len(body) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty body"})
		}

		// The counterparty key may not be fetchable yet on first boot;
		// verification is skipped then, with a warning. Once the key is
		// known, a missing or bad signature is rejected outright.
		key, keyErr := upstream.CounterpartyKey(c.Request().Context())
		if keyErr != nil {
			logger.L.Warn("counterparty key unavailable, accepting webhook unverified", "error", keyErr)
		} else {
			sig := c.Request().Header.Get(SignatureHeader)
			if sig == "" || !signing.Verify(body, sig, key) {
				logger.L.Warn("webhook signature rejected", "remote", c.RealIP())
				return c.NoContent(http.StatusForbidden)
			}
		}

		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
		}

		bus.Publish(domain.WebhookEvent{Payload: payload, ReceivedAt: time.Now().UTC()})
		return c.NoContent(http.StatusOK)
	}
}

// SyncHandler triggers one subscription sync pass.
func SyncHandler(sync *services.Synchronizer) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := sync.SyncAll(c.Request().Context()); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "synced"})
	}
}

// ListSubscriptionsHandler proxies the upstream's active subscription list.
func ListSubscriptionsHandler(upstream ports.UpstreamClient, nonces *nonce.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		subs, err := upstream.ListSubscriptions(c.Request().Context(), nonces.Next(c.Request().Context()))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, subs)
	}
}

// jwtGuard protects admin routes with an HS256 bearer token.
func jwtGuard(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return c.NoContent(http.StatusUnauthorized)
			}
			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return c.NoContent(http.StatusUnauthorized)
			}
			return next(c)
		}
	}
}
