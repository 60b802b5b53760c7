package asaas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ptamhub/billing/internal/platform/gateway"
)

func newClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewWithHTTP("key", srv.URL, 500, srv.Client())
	c.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCreateCharge_BelowMinimum(t *testing.T) {
	c := newClient(t, http.NewServeMux())
	_, err := c.CreateCharge(context.Background(), &gateway.ChargeRequest{Amount: 499})
	require.ErrorIs(t, err, gateway.ErrBelowMinimum)
}

func TestCreateCharge_ReusesCustomer(t *testing.T) {
	var payment paymentRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "key", r.Header.Get("access_token"))
		require.Equal(t, "52998224725", r.URL.Query().Get("cpfCnpj"))
		_, _ = w.Write([]byte(`{"data":[{"id":"cus_1","name":"Ana","cpfCnpj":"52998224725"}]}`))
	})
	mux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payment))
		_, _ = w.Write([]byte(`{"id":"pay_1","status":"PENDING","invoiceUrl":"https://asaas.test/i/pay_1"}`))
	})
	c := newClient(t, mux)

	res, err := c.CreateCharge(context.Background(), &gateway.ChargeRequest{
		Reference:   "purchase-1",
		Description: "Plano Pro",
		Amount:      14990,
		Customer:    gateway.Customer{Name: "Ana", TaxID: "529.982.247-25"},
		SuccessURL:  "https://app.test/dashboard",
	})
	require.NoError(t, err)
	require.Equal(t, "pay_1", res.PaymentID)
	require.Equal(t, "https://asaas.test/i/pay_1", res.RedirectURL)
	require.False(t, res.IsPix())

	require.Equal(t, "cus_1", payment.Customer)
	require.Equal(t, "UNDEFINED", payment.BillingType)
	require.Equal(t, 149.90, payment.Value)
	require.Equal(t, "2026-03-13", payment.DueDate)
	require.Equal(t, "purchase-1", payment.ExternalReference)
	require.NotNil(t, payment.Callback)
	require.True(t, payment.Callback.AutoRedirect)
}

func TestCreateCharge_CreatesCustomer(t *testing.T) {
	created := false
	mux := http.NewServeMux()
	mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		var in customerBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "52998224725", in.CpfCnpj)
		created = true
		_, _ = w.Write([]byte(`{"id":"cus_new"}`))
	})
	mux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
		var in paymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "cus_new", in.Customer)
		_, _ = w.Write([]byte(`{"id":"pay_2","status":"PENDING","invoiceUrl":"https://asaas.test/i/pay_2"}`))
	})
	c := newClient(t, mux)

	_, err := c.CreateCharge(context.Background(), &gateway.ChargeRequest{
		Amount:   1000,
		Customer: gateway.Customer{Name: "Ana", TaxID: "52998224725"},
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestCreateCharge_TranslatesKnownErrors(t *testing.T) {
	cases := map[string]string{
		`{"errors":[{"code":"invalid_cpfCnpj","description":"O CPF/CNPJ informado é inválido."}]}`:                  "invalid CPF/CNPJ",
		`{"errors":[{"code":"invalid_object","description":"O domínio da URL de callback não está configurado."}]}`: "return address",
	}
	for body, want := range cases {
		mux := http.NewServeMux()
		mux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(body))
		})
		c := newClient(t, mux)
		_, err := c.CreateCharge(context.Background(), &gateway.ChargeRequest{
			Amount:   1000,
			Customer: gateway.Customer{ID: "cus_1"},
		})
		var pe *gateway.ProviderError
		require.ErrorAs(t, err, &pe)
		require.Contains(t, gateway.UserMessage(err), want)
	}
}

func TestCheckStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/payments/pay_1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pay_1","customer":"cus_1","status":"RECEIVED","externalReference":"purchase-1","creditCard":{"creditCardToken":"tok_9"}}`))
	})
	c := newClient(t, mux)

	d, err := c.CheckStatus(context.Background(), "pay_1")
	require.NoError(t, err)
	require.Equal(t, gateway.StatusApproved, d.Status)
	require.Equal(t, "purchase-1", d.ExternalReference)
	require.Equal(t, "cus_1", d.CustomerID)
	require.Equal(t, "tok_9", d.SavedMethod)

	_, err = c.CheckStatus(context.Background(), "missing")
	require.ErrorIs(t, err, gateway.ErrPaymentNotFound)
}

func TestChargeSaved(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
		var in paymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "CREDIT_CARD", in.BillingType)
		require.Equal(t, "tok_1", in.CreditCardToken)
		require.Equal(t, "2026-03-10", in.DueDate)
		_, _ = w.Write([]byte(`{"id":"pay_3","status":"CONFIRMED"}`))
	})
	c := newClient(t, mux)

	_, err := c.ChargeSaved(context.Background(), &gateway.SavedChargeRequest{CustomerID: "cus_1"})
	require.ErrorIs(t, err, gateway.ErrSavedMethodUnset)

	d, err := c.ChargeSaved(context.Background(), &gateway.SavedChargeRequest{
		Reference: "sub-1", Amount: 14990, CustomerID: "cus_1", PaymentMethod: "tok_1",
	})
	require.NoError(t, err)
	require.Equal(t, gateway.StatusApproved, d.Status)
}

func TestMapStatus(t *testing.T) {
	require.Equal(t, gateway.StatusApproved, MapStatus("CONFIRMED"))
	require.Equal(t, gateway.StatusApproved, MapStatus("RECEIVED_IN_CASH"))
	require.Equal(t, gateway.StatusPending, MapStatus("AWAITING_RISK_ANALYSIS"))
	require.Equal(t, gateway.StatusOther, MapStatus("OVERDUE"))
	require.Equal(t, gateway.StatusOther, MapStatus("REFUNDED"))
}
