// Package paystack is a minimal client for the payment processor's API,
// covering the two calls this service makes: initializing an inbound
// charge and initiating an outbound transfer. Settlement of both comes
// back asynchronously via webhooks.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/covu-marketplace-ledger/internal/config"
)

// ErrUnavailable indicates the processor answered with a server error
// or the call failed after the request may have been sent; the caller
// should surface a retryable failure rather than treat the operation
// as rejected.
var ErrUnavailable = errors.New("payment processor unavailable")

// ErrUnreachable indicates the request never left this host, so the
// processor cannot have acted on it. Callers may safely undo local
// effects tied to the call.
var ErrUnreachable = errors.New("payment processor unreachable")

// RejectionError is a synchronous business rejection from the processor
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e RejectionError) Error() string {
	return fmt.Sprintf("payment processor rejected request (%d): %s", e.StatusCode, e.Message)
}

// Is implements the errors.Is interface for RejectionError
func (e RejectionError) Is(target error) bool {
	_, ok := target.(RejectionError)
	return ok
}

// Client talks to the processor's REST API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	logger      *slog.Logger
}

// NewClient creates a processor client from configuration
func NewClient(logger *slog.Logger, cfg *config.PaystackConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		logger:      logger,
	}
}

// InitializeRequest starts an inbound charge for a wallet deposit
type InitializeRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	AccountID string `json:"-"`
}

// Authorization is the processor's handle for a started charge. The
// caller redirects the payer to AuthorizationURL.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransferRequest starts an outbound transfer to a bank account
type TransferRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
}

// Transfer is the processor's acknowledgement of an accepted transfer
type Transfer struct {
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

// apiEnvelope is the processor's standard response wrapper
type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction starts a charge and returns the authorization
// the payer must complete. The wallet is only credited when the
// charge.success webhook arrives.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	payload := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.Amount,
		"reference": req.Reference,
		"metadata":  map[string]string{"account_id": req.AccountID},
	}
	if c.callbackURL != "" {
		payload["callback_url"] = c.callbackURL
	}

	var auth Authorization
	if err := c.post(ctx, "/transaction/initialize", payload, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// InitiateTransfer asks the processor to pay out to a bank account.
// Acceptance here only means the transfer is in flight; the outcome
// arrives as a transfer.success or transfer.failed webhook.
func (c *Client) InitiateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	payload := map[string]interface{}{
		"source":    "balance",
		"amount":    req.Amount,
		"reference": req.Reference,
		"recipient": req.Recipient,
	}
	if req.Reason != "" {
		payload["reason"] = req.Reason
	}

	var transfer Transfer
	if err := c.post(ctx, "/transfer", payload, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal processor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build processor request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Processor request failed", "path", path, "error", err)
		if neverSent(err) {
			return fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read processor response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("Processor server error", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode processor response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		return RejectionError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode processor response data: %w", err)
		}
	}

	return nil
}

// neverSent reports whether the transport error happened before any
// bytes reached the processor. Dial failures (connection refused, DNS)
// mean no connection was established, so the request was not sent.
// Anything later, a timeout or a dropped connection mid-flight, is
// ambiguous and does not qualify.
func neverSent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
