package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type asaasStub struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []map[string]interface{}
}

func (s *asaasStub) record(r *http.Request) map[string]interface{} {
	var body map[string]interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
	s.bodies = append(s.bodies, body)
	return body
}

func newAsaasServer(t *testing.T, stub *asaasStub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/customers", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "cus_1"})
	})
	mux.HandleFunc("POST /v3/payments", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "pay_1", "status": "PENDING", "value": 10})
	})
	mux.HandleFunc("GET /v3/payments/pay_1/pixQrCode", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"encodedImage": base64.StdEncoding.EncodeToString([]byte("png-bytes")),
			"payload":      "00020126580014br.gov.bcb.pix",
		})
	})
	mux.HandleFunc("GET /v3/payments/pay_1", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "pay_1", "status": "RECEIVED", "value": 10.5, "paymentDate": "2026-10-18",
		})
	})
	mux.HandleFunc("GET /v3/payments/missing", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("DELETE /v3/payments/pay_1", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"deleted": true, "id": "pay_1"})
	})
	mux.HandleFunc("GET /v3/payments", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hasMore": false,
			"data": []map[string]interface{}{
				{"id": "pay_9", "status": "PENDING", "value": 3, "externalReference": "42:assinatura"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAsaasClient_CreateCharge(t *testing.T) {
	stub := &asaasStub{}
	srv := newAsaasServer(t, stub)
	c := NewAsaasClient(srv.URL+"/v3", "secret", clock.NewMockClock(testNow))

	charge, err := c.CreateCharge(context.Background(), testProduct(), domain.Payer{UserID: 42, FirstName: "Ana", LastName: "Souza"})
	require.NoError(t, err)

	assert.Equal(t, "pay_1", charge.ChargeID)
	assert.Equal(t, "00020126580014br.gov.bcb.pix", charge.PixPayload)
	assert.Equal(t, []byte("png-bytes"), charge.QRImage)
	assert.Equal(t, "2026-10-19", charge.DueDate)

	require.Len(t, stub.requests, 3)
	for _, r := range stub.requests {
		assert.Equal(t, "secret", r.Header.Get("access_token"))
	}

	customer := stub.bodies[0]
	assert.Equal(t, "Ana Souza", customer["name"])
	assert.Equal(t, true, customer["notificationDisabled"])
	assert.True(t, ValidCPF(customer["cpfCnpj"].(string)))

	payment := stub.bodies[1]
	assert.Equal(t, "cus_1", payment["customer"])
	assert.Equal(t, "PIX", payment["billingType"])
	assert.Equal(t, "2026-10-19", payment["dueDate"])
	assert.Equal(t, 10.0, payment["value"])
	assert.Equal(t, "42:assinatura", payment["externalReference"])
}

func TestAsaasClient_GetChargeStatus(t *testing.T) {
	srv := newAsaasServer(t, &asaasStub{})
	c := NewAsaasClient(srv.URL+"/v3", "secret", nil)

	st, err := c.GetChargeStatus(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "RECEIVED", st.Status)
	assert.Equal(t, domain.StatusClassPaid, st.Class())
	assert.Equal(t, "10.5", st.Value.String())
	require.NotNil(t, st.PaidAt)
	assert.Equal(t, "2026-10-18", st.PaidAt.Format("2006-01-02"))

	_, err = c.GetChargeStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrGateway)
	assert.ErrorIs(t, err, domain.ErrChargeNotFound)
}

func TestAsaasClient_DeleteAndList(t *testing.T) {
	stub := &asaasStub{}
	srv := newAsaasServer(t, stub)
	c := NewAsaasClient(srv.URL+"/v3", "secret", nil)

	require.NoError(t, c.DeleteCharge(context.Background(), "pay_1"))

	page, err := c.ListCharges(context.Background(), "PENDING", 0, 100)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	require.Len(t, page.Charges, 1)
	assert.Equal(t, "pay_9", page.Charges[0].ChargeID)
	assert.Equal(t, "42:assinatura", page.Charges[0].ExternalReference)

	last := stub.requests[len(stub.requests)-1]
	assert.Equal(t, "PENDING", last.URL.Query().Get("status"))
	assert.Equal(t, "100", last.URL.Query().Get("limit"))
}

func TestAsaasClient_CreateChargeDeletesChargeWithoutQRCode(t *testing.T) {
	tests := []struct {
		name string
		pix  http.HandlerFunc
	}{
		{
			name: "qr code request fails",
			pix: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "qr code image is not base64",
			pix: func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{"encodedImage": "%%%", "payload": "000201"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu      sync.Mutex
				deleted []string
			)
			mux := http.NewServeMux()
			mux.HandleFunc("POST /v3/customers", func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "cus_1"})
			})
			mux.HandleFunc("POST /v3/payments", func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "pay_2", "status": "PENDING", "value": 10})
			})
			mux.HandleFunc("GET /v3/payments/pay_2/pixQrCode", tt.pix)
			mux.HandleFunc("DELETE /v3/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				deleted = append(deleted, r.PathValue("id"))
				mu.Unlock()
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"deleted": true})
			})
			srv := httptest.NewServer(mux)
			t.Cleanup(srv.Close)

			c := NewAsaasClient(srv.URL+"/v3", "secret", clock.NewMockClock(testNow))
			charge, err := c.CreateCharge(context.Background(), testProduct(), domain.Payer{UserID: 42})
			require.Error(t, err)
			assert.Nil(t, charge)
			assert.ErrorIs(t, err, domain.ErrGateway)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{"pay_2"}, deleted)
		})
	}
}

func TestReferenceUser(t *testing.T) {
	id, ok := referenceUser("42:assinatura")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, ref := range []string{"", "42", "abc:assinatura"} {
		_, ok := referenceUser(ref)
		assert.False(t, ok, ref)
	}
}

func TestAsaasClient_ErrorResponsesWrapGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_value","description":"valor inválido"}]}`))
	}))
	t.Cleanup(srv.Close)
	c := NewAsaasClient(srv.URL, "secret", nil)

	_, err := c.CreateCharge(context.Background(), testProduct(), domain.Payer{UserID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGateway)
	assert.Contains(t, err.Error(), "valor inválido")
	assert.True(t, IsGatewayError(err))
}

func TestAsaasClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAsaasClient(url, "secret", nil).GetChargeStatus(context.Background(), "pay_1")
	assert.ErrorIs(t, err, domain.ErrGateway)
}

func TestRandomCPF_IsValid(t *testing.T) {
	for i := 0; i < 200; i++ {
		cpf := RandomCPF()
		require.Len(t, cpf, 11)
		require.True(t, ValidCPF(cpf), cpf)
	}
	assert.True(t, ValidCPF("52998224725"))
	assert.False(t, ValidCPF("52998224726"))
	assert.False(t, ValidCPF("5299822472a"))
}
