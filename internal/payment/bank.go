package payment

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	bankPlatformName  = "pizzeria-mavi"
	bankVATPercentage = 14
	bankContentType   = "application/json; charset=utf-8"
	defaultEmail      = "customer@pizzeriamavi.fi"
)

// BankConfig configures the online-bank gateway.
type BankConfig struct {
	Account     string
	Secret      string
	BaseURL     string
	CustomerURL string
	BackendURL  string
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
	// Now overrides the clock used for request timestamps.
	Now func() time.Time
}

// Bank talks to a Paytrail-style online-bank gateway. Requests and callbacks
// are signed with Sign.
type Bank struct {
	cfg    BankConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

func NewBank(cfg BankConfig) *Bank {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Bank{cfg: cfg, client: client, cb: newBreaker("payment-verkkomaksu")}
}

// --- Wire types ---

type bankItem struct {
	UnitPrice     int64  `json:"unitPrice"`
	Units         int    `json:"units"`
	VATPercentage int    `json:"vatPercentage"`
	ProductCode   string `json:"productCode"`
	Description   string `json:"description"`
}

type bankCustomer struct {
	Email string `json:"email"`
}

type bankURLs struct {
	Success string `json:"success"`
	Cancel  string `json:"cancel"`
}

type bankCreateBody struct {
	Stamp        string       `json:"stamp"`
	Reference    string       `json:"reference"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Language     string       `json:"language"`
	Items        []bankItem   `json:"items"`
	Customer     bankCustomer `json:"customer"`
	RedirectUrls bankURLs     `json:"redirectUrls"`
	CallbackUrls bankURLs     `json:"callbackUrls"`
}

type bankCreateResponse struct {
	TransactionID string `json:"transactionId"`
	Href          string `json:"href"`
}

type bankStatusResponse struct {
	Status string `json:"status"`
}

// --- Provider ---

func (b *Bank) CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error) {
	cents := toCents(req.Amount)
	if cents <= 0 {
		return CreateResult{}, ErrInvalidAmount
	}
	email := req.CustomerEmail
	if email == "" {
		email = defaultEmail
	}
	orderID := req.OrderID.String()
	returnQuery := url.Values{"orderId": {orderID}, "provider": {"verkkomaksu"}}.Encode()
	customerURL := forceHTTPS(b.cfg.CustomerURL)
	callback := strings.TrimRight(b.cfg.BackendURL, "/") + "/api/payments/webhook/verkkomaksu"

	body := bankCreateBody{
		Stamp:     uuid.NewString(),
		Reference: orderID,
		Amount:    cents,
		Currency:  "EUR",
		Language:  "FI",
		Items: []bankItem{{
			UnitPrice:     cents,
			Units:         1,
			VATPercentage: bankVATPercentage,
			ProductCode:   "ORDER_TOTAL",
			Description:   "Order #" + displayNumber(req),
		}},
		Customer: bankCustomer{Email: email},
		RedirectUrls: bankURLs{
			Success: customerURL + "/payment/success?" + returnQuery,
			Cancel:  customerURL + "/payment/cancel?" + returnQuery,
		},
		CallbackUrls: bankURLs{Success: callback, Cancel: callback},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return CreateResult{}, fmt.Errorf("encoding bank payment: %w", err)
	}

	var out bankCreateResponse
	if err := b.do(ctx, http.MethodPost, "/payments", raw, &out); err != nil {
		return CreateResult{}, err
	}
	return CreateResult{PaymentURL: out.Href, TransactionID: out.TransactionID}, nil
}

func (b *Bank) ProcessWebhook(_ context.Context, wh Webhook) (WebhookResult, error) {
	fields := checkoutFields(wh.Query, wh.Header)
	if len(fields) == 0 {
		return WebhookResult{}, ErrInvalidWebhook
	}

	sig := wh.Signature
	if sig == "" {
		sig = wh.Query.Get("signature")
	}
	if sig == "" && wh.Header != nil {
		sig = wh.Header.Get("signature")
	}
	// Query callbacks carry no body; header callbacks sign the body too.
	var signedBody []byte
	if len(wh.Query) == 0 {
		signedBody = wh.Payload
	}
	if !Verify(b.cfg.Secret, fields, signedBody, sig) {
		return WebhookResult{}, ErrInvalidSignature
	}

	orderID, err := uuid.Parse(fields["checkout-reference"])
	if err != nil {
		return WebhookResult{}, fmt.Errorf("checkout-reference: %w", ErrInvalidWebhook)
	}
	return WebhookResult{
		Status:        bankStatus(fields["checkout-status"]),
		OrderID:       orderID,
		TransactionID: fields["checkout-transaction-id"],
	}, nil
}

func (b *Bank) GetStatus(ctx context.Context, transactionID string) (StatusResult, error) {
	if transactionID == "" {
		return StatusResult{Status: enum.PaymentStatusPending}, nil
	}
	var out bankStatusResponse
	if err := b.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(transactionID), nil, &out); err != nil {
		if apperr.IsKind(err, apperr.KindProvider) {
			return StatusResult{Status: enum.PaymentStatusFailed}, nil
		}
		return StatusResult{}, err
	}
	if out.Status == "ok" {
		return StatusResult{Status: enum.PaymentStatusCompleted}, nil
	}
	return StatusResult{Status: enum.PaymentStatusPending}, nil
}

// --- Helpers ---

func (b *Bank) do(ctx context.Context, method, path string, body []byte, out any) error {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	headers := map[string]string{
		"checkout-account":   b.cfg.Account,
		"checkout-algorithm": "sha256",
		"checkout-method":    method,
		"checkout-nonce":     hex.EncodeToString(nonce),
		"checkout-timestamp": b.cfg.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	signature := Sign(b.cfg.Secret, headers, body)

	_, err := execute(b.cb, func() (struct{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, b.cfg.BaseURL+path, reader)
		if err != nil {
			return struct{}{}, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("signature", signature)
		req.Header.Set("platform-name", bankPlatformName)
		if body != nil {
			req.Header.Set("Content-Type", bankContentType)
		}

		resp, err := b.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return struct{}{}, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return struct{}{}, fmt.Errorf("bank gateway returned %d: %s", resp.StatusCode, truncate(data, 200))
		}
		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return struct{}{}, fmt.Errorf("decoding bank response: %w", err)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return apperr.Wrap(ErrProviderFailed, err)
	}
	return nil
}

func bankStatus(s string) string {
	switch strings.ToLower(s) {
	case "ok", "paid":
		return enum.PaymentStatusCompleted
	case "pending", "delayed":
		return enum.PaymentStatusPending
	default:
		return enum.PaymentStatusFailed
	}
}

func forceHTTPS(u string) string {
	u = strings.TrimRight(u, "/")
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func displayNumber(req CreateRequest) string {
	if req.OrderNumber != "" {
		return req.OrderNumber
	}
	return req.OrderID.String()
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
