package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tour-booking-service/config"
	"tour-booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"local zero prefix", "0712345678", "254712345678", false},
		{"bare nine digits", "712345678", "254712345678", false},
		{"bare nine digits 1-prefix", "110345678", "254110345678", false},
		{"already international", "254712345678", "254712345678", false},
		{"too short", "12345", "", true},
		{"letters", "07123A5678", "", true},
		{"empty", "", "", true},
		{"wrong prefix international length", "255712345678", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhoneNumber(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaymentAmount(t *testing.T) {
	assert.Equal(t, int64(4502), PaymentAmount(1500.50, 3))
	assert.Equal(t, int64(1500), PaymentAmount(1500, 1))
	assert.Equal(t, int64(2000), PaymentAmount(999.99, 2))
}

func TestStkPassword(t *testing.T) {
	c := NewMpesaClient(config.MpesaConfig{Shortcode: "174379", Passkey: "secretpasskey"}, nil)

	got := c.stkPassword("20240102150405")
	want := base64.StdEncoding.EncodeToString([]byte("174379secretpasskey20240102150405"))
	assert.Equal(t, want, got)
}

type memoryTokenCache struct {
	mu    sync.Mutex
	token string
}

func (m *memoryTokenCache) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryTokenCache) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func TestGetAccessToken(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-abc", "expires_in": "3599"})
	}))
	defer srv.Close()

	cache := &memoryTokenCache{}
	c := NewMpesaClient(config.MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		BaseURL:        srv.URL,
	}, cache)

	token, err := c.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)

	// Second call is served from the cache
	token, err = c.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
	assert.Equal(t, 1, tokenCalls)
}

func TestGetAccessTokenAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewMpesaClient(config.MpesaConfig{BaseURL: srv.URL}, nil)

	_, err := c.GetAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrGatewayAuth)
}

func stkTestClient(t *testing.T, pushHandler http.HandlerFunc) *MpesaClient {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-abc", "expires_in": "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", pushHandler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewMpesaClient(config.MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "secretpasskey",
		CallbackURL:    "https://example.com/api/v1/payments/callback",
		BaseURL:        srv.URL,
	}, nil)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC) }
	return c
}

func TestInitiatePayment(t *testing.T) {
	booking := &models.Booking{ID: 42, NumParticipants: 3, PaymentStatus: models.PaymentStatusPending}
	tour := &models.Tour{ID: 7, Name: "Coastal Safari", Price: 1500.50}

	var captured models.StkPushRequest
	c := stkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(models.StkPushResponse{
			MerchantRequestID: "m-1",
			CheckoutRequestID: "c-1",
			ResponseCode:      "0",
			CustomerMessage:   "Success. Request accepted for processing",
		})
	})

	resp, err := c.InitiatePayment(context.Background(), booking, tour, "0712345678")
	require.NoError(t, err)
	assert.Equal(t, "c-1", resp.CheckoutRequestID)

	assert.Equal(t, "174379", captured.BusinessShortCode)
	assert.Equal(t, "20240102150405", captured.Timestamp)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("174379secretpasskey20240102150405")), captured.Password)
	assert.Equal(t, int64(4502), captured.Amount)
	assert.Equal(t, "254712345678", captured.PartyA)
	assert.Equal(t, "254712345678", captured.PhoneNumber)
	assert.Equal(t, "42", captured.AccountReference)
	assert.Equal(t, "https://example.com/api/v1/payments/callback", captured.CallBackURL)
	assert.Equal(t, "CustomerPayBillOnline", captured.TransactionType)
}

func TestInitiatePaymentRejected(t *testing.T) {
	booking := &models.Booking{ID: 42, NumParticipants: 1}
	tour := &models.Tour{ID: 7, Name: "Coastal Safari", Price: 1000}

	c := stkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.StkPushResponse{
			ResponseCode:        "1",
			ResponseDescription: "Invalid shortcode",
		})
	})

	_, err := c.InitiatePayment(context.Background(), booking, tour, "0712345678")
	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestInitiatePaymentInvalidPhone(t *testing.T) {
	c := NewMpesaClient(config.MpesaConfig{BaseURL: "http://127.0.0.1:1"}, nil)

	_, err := c.InitiatePayment(context.Background(),
		&models.Booking{ID: 1, NumParticipants: 1},
		&models.Tour{ID: 1, Price: 100},
		"12345")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
