/**
 * @description
 * This package provides a client for the partner payment gateway's
 * service-facing endpoints. Every outbound call carries a freshly minted,
 * operation-scoped bearer token from the shared-secret partnership; any
 * non-2xx response is treated as a hard denial, never a soft retry.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - pkg/sharedtoken: Token minting for outbound authentication.
 */
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/pkg/sharedtoken"
)

// ErrDenied is returned for any non-2xx partner response.
var ErrDenied = errors.New("partner gateway denied the request")

// Client is a client for the partner gateway's confirmation and link endpoints.
type Client struct {
	BaseURL     string
	Partnership *sharedtoken.Partnership
	HTTPClient  *http.Client
}

// NewClient creates a new partner gateway client.
func NewClient(baseURL string, partnership *sharedtoken.Partnership) *Client {
	return &Client{
		BaseURL:     baseURL,
		Partnership: partnership,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// confirmRequest is the payload sent to the partner's transfer-confirmation endpoint.
type confirmRequest struct {
	TransactionRef string `json:"transaction_ref"`
}

// linkCallbackRequest is the payload pushed to the partner's link callback.
type linkCallbackRequest struct {
	ExternalUserID string `json:"external_user_id"`
	AccountNumber  string `json:"account_number"`
	AccountToken   string `json:"account_token"`
}

// ConfirmTransaction asks the partner to confirm a transfer it initiated and
// returns the validated transfer parameters. The bearer token is minted fresh
// and scoped to the transaction reference.
func (c *Client) ConfirmTransaction(ctx context.Context, transactionRef string) (*domain.ConfirmedTransfer, error) {
	token, err := c.Partnership.Mint(transactionRef)
	if err != nil {
		return nil, fmt.Errorf("failed to mint confirmation token: %w", err)
	}

	body, err := c.post(ctx, "/internal/transfers/confirm", token, confirmRequest{TransactionRef: transactionRef})
	if err != nil {
		return nil, err
	}

	var confirmed domain.ConfirmedTransfer
	if err := json.Unmarshal(body, &confirmed); err != nil {
		return nil, fmt.Errorf("failed to decode confirmation response: %w", err)
	}
	return &confirmed, nil
}

// PushLink delivers an account-scoped link token to the partner's callback
// endpoint. The link is only finalized locally once this call succeeds.
func (c *Client) PushLink(ctx context.Context, externalUserID, accountNumber, accountToken string) error {
	token, err := c.Partnership.Mint(externalUserID)
	if err != nil {
		return fmt.Errorf("failed to mint link token: %w", err)
	}

	_, err = c.post(ctx, "/internal/links/callback", token, linkCallbackRequest{
		ExternalUserID: externalUserID,
		AccountNumber:  accountNumber,
		AccountToken:   accountToken,
	})
	return err
}

// post executes an authenticated POST and returns the response body, mapping
// any non-2xx status to ErrDenied.
func (c *Client) post(ctx context.Context, path, bearerToken string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach partner gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=gateway_client path=%s status=%d msg=\"non-2xx partner response\"", path, resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrDenied, resp.StatusCode)
	}
	return respBody, nil
}
