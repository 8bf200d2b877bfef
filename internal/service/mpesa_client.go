package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tour-booking-service/config"
	"tour-booking-service/internal/models"
	"tour-booking-service/internal/util"

	"go.uber.org/zap"
)

const (
	tokenPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	transactionType = "CustomerPayBillOnline"

	// Daraja tokens live ~1h; refresh with headroom
	defaultTokenTTL = 50 * time.Minute
)

// TokenCache caches the short-lived gateway bearer token between
// requests. A nil cache means every call fetches a fresh token.
type TokenCache interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string, ttl time.Duration) error
}

// MpesaClient talks to the Daraja OAuth and STK push endpoints. All
// credentials come from the config value it is constructed with.
type MpesaClient struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	cache      TokenCache
	logger     *zap.Logger
	now        func() time.Time
}

// NewMpesaClient creates a new gateway client
func NewMpesaClient(cfg config.MpesaConfig, cache TokenCache) *MpesaClient {
	return &MpesaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// NormalizePhoneNumber converts local Kenyan formats to international
// 254XXXXXXXXX and rejects anything else.
func NormalizePhoneNumber(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}

	switch {
	case len(raw) == 10 && raw[0] == '0':
		return "254" + raw[1:], nil
	case len(raw) == 9 && (raw[0] == '7' || raw[0] == '1'):
		return "254" + raw, nil
	case len(raw) == 12 && strings.HasPrefix(raw, "254"):
		return raw, nil
	}
	return "", ErrInvalidPhone
}

// PaymentAmount computes the charge for a booking. The provider only
// accepts whole currency units.
func PaymentAmount(price float64, participants int) int64 {
	return int64(math.Round(price * float64(participants)))
}

// stkPassword derives the request password required by the provider's
// signing scheme: base64(shortcode + passkey + timestamp).
func (c *MpesaClient) stkPassword(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// GetAccessToken exchanges the client credentials for a bearer token,
// consulting the cache first.
func (c *MpesaClient) GetAccessToken(ctx context.Context) (string, error) {
	if c.cache != nil {
		token, err := c.cache.GetToken(ctx)
		if err != nil {
			c.logger.Warn("Token cache read failed", zap.Error(err))
		} else if token != "" {
			return token, nil
		}
	}

	util.GatewayTokenRequests.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrGatewayAuth, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: malformed token response: %v", ErrGatewayAuth, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrGatewayAuth)
	}

	ttl := defaultTokenTTL
	if secs, err := strconv.Atoi(body.ExpiresIn); err == nil && secs > 120 {
		ttl = time.Duration(secs-60) * time.Second
	}
	if c.cache != nil {
		if err := c.cache.SetToken(ctx, body.AccessToken, ttl); err != nil {
			c.logger.Warn("Token cache write failed", zap.Error(err))
		}
	}

	return body.AccessToken, nil
}

// InitiatePayment sends the STK push for a booking. The booking id
// travels as the account reference so the asynchronous callback can be
// correlated later. No booking state is mutated here.
func (c *MpesaClient) InitiatePayment(ctx context.Context, booking *models.Booking, tour *models.Tour, phone string) (*models.StkPushResponse, error) {
	ctx, span := util.StartSpan(ctx, "MpesaClient.InitiatePayment")
	defer span.End()

	normalized, err := NormalizePhoneNumber(phone)
	if err != nil {
		util.PaymentInitiationFailures.WithLabelValues("invalid_phone").Inc()
		return nil, err
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		util.PaymentInitiationFailures.WithLabelValues("auth").Inc()
		return nil, err
	}

	timestamp := c.now().Format("20060102150405")
	amount := PaymentAmount(tour.Price, booking.NumParticipants)

	payload := &models.StkPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.stkPassword(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            normalized,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       normalized,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  strconv.FormatInt(booking.ID, 10),
		TransactionDesc:   fmt.Sprintf("Payment for %s booking %d", tour.Name, booking.ID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stk push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build stk push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	util.StkPushLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.PaymentInitiationFailures.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("stk push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		util.PaymentInitiationFailures.WithLabelValues("rejected").Inc()
		c.logger.Error("STK push rejected",
			zap.Int64("booking_id", booking.ID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return nil, fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}

	var pushResp models.StkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("malformed stk push response: %w", err)
	}

	if pushResp.ResponseCode != "0" {
		util.PaymentInitiationFailures.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, pushResp.ResponseDescription)
	}

	util.PaymentsInitiatedTotal.Inc()
	c.logger.Info("STK push accepted",
		zap.Int64("booking_id", booking.ID),
		zap.String("phone", normalized),
		zap.Int64("amount", amount),
		zap.String("checkout_request_id", pushResp.CheckoutRequestID))

	return &pushResp, nil
}
