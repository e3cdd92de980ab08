/**
 * @description
 * This file contains the authentication middleware for the HTTP router. Three
 * authentication surfaces exist: customer sessions (HS256 JWT with the account
 * id in the subject claim), partner service tokens (shared-secret tokens minted
 * by the gateway and verified through the partnership), and account-scoped link
 * tokens carried in the X-Account-Token header.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: Session token validation.
 * - github.com/google/uuid: Account identifier parsing.
 */

package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/finvault/ledger-service/internal/app"
	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/pkg/sharedtoken"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	sessionAccountIDKey ContextKey = "sessionAccountID"
	gatewayAccountKey   ContextKey = "gatewayAccount"
)

// GetSessionAccountID returns the authenticated account id set by
// SessionAuthMiddleware.
func GetSessionAccountID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(sessionAccountIDKey).(uuid.UUID)
	return id, ok
}

// GetGatewayAccount returns the account resolved from the X-Account-Token
// header by AccountTokenMiddleware.
func GetGatewayAccount(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(gatewayAccountKey).(*domain.Account)
	return account, ok
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header required")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader || token == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return token, nil
}

// SessionAuthMiddleware validates customer session JWTs. The subject claim
// carries the account id.
func SessionAuthMiddleware(sessionSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(sessionSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid session token", http.StatusUnauthorized)
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				http.Error(w, "Account ID not found in token", http.StatusUnauthorized)
				return
			}
			accountID, err := uuid.Parse(subject)
			if err != nil {
				http.Error(w, "Invalid account ID in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionAccountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServiceTokenMiddleware validates the partner gateway's shared-secret service
// token. Each verification failure mode gets its own rejection reason so that
// partner-side misconfiguration (wrong audience, skewed clock) is diagnosable
// from our logs.
func ServiceTokenMiddleware(partnership *sharedtoken.Partnership) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if _, err := partnership.VerifyFromPartner(tokenString); err != nil {
				log.Printf("level=warn component=api middleware=service_token outcome=reject reason=%v remote=%s", err, r.RemoteAddr)
				http.Error(w, fmt.Sprintf("Invalid service token: %v", err), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountTokenMiddleware resolves the account-scoped token in X-Account-Token
// to a linked account and stores it on the request context. It runs after
// ServiceTokenMiddleware on gateway-facing routes.
func AccountTokenMiddleware(service *app.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get("X-Account-Token")
			if tokenString == "" {
				http.Error(w, "X-Account-Token header required", http.StatusUnauthorized)
				return
			}

			account, err := service.ResolveAccountToken(r.Context(), tokenString)
			if err != nil {
				log.Printf("level=warn component=api middleware=account_token outcome=reject reason=%v remote=%s", err, r.RemoteAddr)
				http.Error(w, "Invalid account token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), gatewayAccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
