/**
 * @description
 * This package implements the service-to-service trust protocol between the
 * ledger-service and a partner payment gateway. A Partnership is a capability
 * object holding the secret shared out-of-band with exactly one partner; it
 * mints and verifies short-lived HMAC-signed tokens carrying an opaque payload.
 *
 * Verification runs four independent hard checks (signature, expiry, issuer,
 * audience) plus a stale-issuance check that rejects tokens minted longer ago
 * than the tolerance window even when they have not yet expired. Any single
 * failure is a hard rejection.
 *
 * Two token lifetimes exist: operation-scoped tokens bounded by the tolerance
 * window, and durable tokens (account link credentials) with no expiry whose
 * validity rests on a server-side stored copy instead of freshness.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT envelope and HMAC signing.
 */
package sharedtoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultToleranceSeconds is the freshness window applied when a partnership
// is configured without an explicit tolerance.
const DefaultToleranceSeconds = 60

var (
	ErrInvalidSignature = errors.New("shared token signature is invalid")
	ErrExpired          = errors.New("shared token has expired")
	ErrIssuerMismatch   = errors.New("shared token issuer mismatch")
	ErrAudienceMismatch = errors.New("shared token audience mismatch")
	ErrStaleIssuance    = errors.New("shared token issued outside the tolerance window")
)

// tokenClaims is the wire shape of a shared token: an opaque payload plus the
// standard signed-token envelope fields.
type tokenClaims struct {
	Data string `json:"data"`
	jwt.RegisteredClaims
}

// Partnership is the mint/verify capability pair for one partner relationship.
// Each relationship carries its own dedicated secret; adding a partner means
// constructing another Partnership, never sharing a global key.
type Partnership struct {
	localID   string
	partnerID string
	secret    []byte
	tolerance time.Duration
}

// NewPartnership constructs the capability pair for one partner. A
// non-positive toleranceSeconds falls back to the default window.
func NewPartnership(localID, partnerID, secret string, toleranceSeconds int) *Partnership {
	if toleranceSeconds <= 0 {
		toleranceSeconds = DefaultToleranceSeconds
	}
	return &Partnership{
		localID:   localID,
		partnerID: partnerID,
		secret:    []byte(secret),
		tolerance: time.Duration(toleranceSeconds) * time.Second,
	}
}

// LocalID returns this service's identity in the partnership.
func (p *Partnership) LocalID() string { return p.localID }

// PartnerID returns the partner service's identity in the partnership.
func (p *Partnership) PartnerID() string { return p.partnerID }

// Mint issues a token carrying payload, issued by this service for the
// partner. Expiry is issued-at plus the tolerance window.
func (p *Partnership) Mint(payload string) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		Data: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.localID,
			Audience:  jwt.ClaimStrings{p.partnerID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tolerance)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// MintDurable issues a token with no expiry, for credentials that persist
// across the partnership (such as account link tokens). The holder's access
// is bounded by server-side state, not by a freshness window; revocation
// happens by replacing the stored copy.
func (p *Partnership) MintDurable(payload string) (string, error) {
	claims := tokenClaims{
		Data: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   p.localID,
			Audience: jwt.ClaimStrings{p.partnerID},
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Verify checks a token against the shared secret and the expected
// issuer/audience pair, returning the embedded payload. Claim validation is
// performed here rather than by the JWT library so that each failure mode
// surfaces as its own sentinel error.
func (p *Partnership) Verify(token, expectedIssuer, expectedAudience string) (string, error) {
	return p.verify(token, expectedIssuer, expectedAudience, true)
}

func (p *Partnership) verify(token, expectedIssuer, expectedAudience string, enforceFreshness bool) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSignature
	}

	now := time.Now().UTC()

	if enforceFreshness {
		if claims.ExpiresAt == nil || now.After(claims.ExpiresAt.Time) {
			return "", ErrExpired
		}
	}
	if claims.Issuer != expectedIssuer {
		return "", ErrIssuerMismatch
	}
	if !containsAudience(claims.Audience, expectedAudience) {
		return "", ErrAudienceMismatch
	}
	if enforceFreshness {
		// A token may carry a generous expiry yet still have been minted too
		// long ago relative to the expected round-trip; reject it as a replay.
		if claims.IssuedAt == nil || now.Sub(claims.IssuedAt.Time) > p.tolerance {
			return "", ErrStaleIssuance
		}
	}

	return claims.Data, nil
}

// VerifyFromPartner checks a token the partner minted for this service.
func (p *Partnership) VerifyFromPartner(token string) (string, error) {
	return p.Verify(token, p.partnerID, p.localID)
}

// VerifyMintedLocally checks a token this service minted and later received
// back, such as a confirmation token reflected by the partner.
func (p *Partnership) VerifyMintedLocally(token string) (string, error) {
	return p.Verify(token, p.localID, p.partnerID)
}

// VerifyDurableMintedLocally checks a durable token this service minted:
// signature, issuer, and audience only. Freshness is deliberately not
// enforced; durable tokens stay valid until revoked server-side.
func (p *Partnership) VerifyDurableMintedLocally(token string) (string, error) {
	return p.verify(token, p.localID, p.partnerID, false)
}

func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
