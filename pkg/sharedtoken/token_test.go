package sharedtoken

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "a-shared-secret-for-tests"

func signClaims(t *testing.T, secret string, claims tokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)

	token, err := p.Mint(`{"ref":"txn_123"}`)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	payload, err := p.VerifyMintedLocally(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if payload != `{"ref":"txn_123"}` {
		t.Fatalf("expected payload round-trip, got %q", payload)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minter := NewPartnership("gateway", "ledger", "some-other-secret", 60)
	verifier := NewPartnership("ledger", "gateway", testSecret, 60)

	token, err := minter.Mint("payload")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := verifier.VerifyFromPartner(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)
	past := time.Now().UTC().Add(-5 * time.Minute)

	token := signClaims(t, testSecret, tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gateway",
			Audience:  jwt.ClaimStrings{"ledger"},
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	})

	if _, err := p.VerifyFromPartner(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyRejectsStaleIssuanceEvenBeforeExpiry(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)
	now := time.Now().UTC()

	// Minted three minutes ago with a ten-minute expiry: not yet expired, but
	// clearly older than the tolerance window.
	token := signClaims(t, testSecret, tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gateway",
			Audience:  jwt.ClaimStrings{"ledger"},
			IssuedAt:  jwt.NewNumericDate(now.Add(-3 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(7 * time.Minute)),
		},
	})

	if _, err := p.VerifyFromPartner(token); !errors.Is(err, ErrStaleIssuance) {
		t.Fatalf("expected ErrStaleIssuance, got %v", err)
	}
}

func TestVerifyRejectsIssuerMismatch(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)
	now := time.Now().UTC()

	token := signClaims(t, testSecret, tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{"ledger"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})

	if _, err := p.VerifyFromPartner(token); !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("expected ErrIssuerMismatch, got %v", err)
	}
}

func TestVerifyRejectsAudienceMismatch(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)
	now := time.Now().UTC()

	// Valid signature, valid freshness, but minted for a different audience.
	token := signClaims(t, testSecret, tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gateway",
			Audience:  jwt.ClaimStrings{"some-other-service"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})

	if _, err := p.VerifyFromPartner(token); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)
	if _, err := p.VerifyFromPartner("not.a.token"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for malformed token, got %v", err)
	}
}

func TestDurableTokenOutlivesToleranceWindow(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)

	// Minted well outside the tolerance window, with no expiry: a durable
	// credential must still verify on signature, issuer, and audience alone.
	token := signClaims(t, testSecret, tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "ledger",
			Audience: jwt.ClaimStrings{"gateway"},
			IssuedAt: jwt.NewNumericDate(time.Now().UTC().Add(-48 * time.Hour)),
		},
	})

	payload, err := p.VerifyDurableMintedLocally(token)
	if err != nil {
		t.Fatalf("expected aged durable token to verify, got %v", err)
	}
	if payload != "payload" {
		t.Fatalf("expected payload round-trip, got %q", payload)
	}
}

func TestDurableMintRoundTrip(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)

	token, err := p.MintDurable("durable-payload")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	payload, err := p.VerifyDurableMintedLocally(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if payload != "durable-payload" {
		t.Fatalf("expected payload round-trip, got %q", payload)
	}
}

func TestDurableVerifyStillRejectsWrongSecretAndIdentity(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 60)

	foreign := signClaims(t, "some-other-secret", tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "ledger",
			Audience: jwt.ClaimStrings{"gateway"},
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	})
	if _, err := p.VerifyDurableMintedLocally(foreign); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	wrongIssuer := signClaims(t, testSecret, tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "someone-else",
			Audience: jwt.ClaimStrings{"gateway"},
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	})
	if _, err := p.VerifyDurableMintedLocally(wrongIssuer); !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("expected ErrIssuerMismatch, got %v", err)
	}

	wrongAudience := signClaims(t, testSecret, tokenClaims{
		Data: "payload",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "ledger",
			Audience: jwt.ClaimStrings{"some-other-service"},
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	})
	if _, err := p.VerifyDurableMintedLocally(wrongAudience); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestToleranceDefaultsWhenUnset(t *testing.T) {
	p := NewPartnership("ledger", "gateway", testSecret, 0)
	if p.tolerance != DefaultToleranceSeconds*time.Second {
		t.Fatalf("expected default tolerance, got %v", p.tolerance)
	}
}
