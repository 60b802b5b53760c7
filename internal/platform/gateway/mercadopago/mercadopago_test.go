package mercadopago

import (
	"context"
	"errors"
	"testing"

	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/stretchr/testify/require"

	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/config"
)

type fakePreferences struct {
	got preference.Request
	res *preference.Response
	err error
}

func (f *fakePreferences) Create(_ context.Context, r preference.Request) (*preference.Response, error) {
	f.got = r
	return f.res, f.err
}

type fakePayments struct {
	byID   map[int]payment.Response
	search []payment.Response
	filter map[string]string
}

func (f *fakePayments) Get(_ context.Context, id int) (*payment.Response, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return &p, nil
}

func (f *fakePayments) Search(_ context.Context, r payment.SearchRequest) (*payment.SearchResponse, error) {
	f.filter = r.Filters
	return &payment.SearchResponse{Results: f.search}, nil
}

func TestNew_DisabledWithoutToken(t *testing.T) {
	c, err := New(config.Defaults())
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestCreateCharge(t *testing.T) {
	prefs := &fakePreferences{res: &preference.Response{ID: "pref-1", InitPoint: "https://mp.test/checkout/pref-1"}}
	c := &Client{preferences: prefs, payments: &fakePayments{}}

	res, err := c.CreateCharge(context.Background(), &gateway.ChargeRequest{
		Reference:       "purchase-1",
		Title:           "Relatórios adicionais",
		Quantity:        5,
		Amount:          17495,
		SuccessURL:      "https://app.test/dashboard",
		NotificationURL: "https://api.test/functions/v1/mp-webhook",
	})
	require.NoError(t, err)
	require.Equal(t, "pref-1", res.PaymentID)
	require.Equal(t, "https://mp.test/checkout/pref-1", res.RedirectURL)

	require.Equal(t, "purchase-1", prefs.got.ExternalReference)
	require.Equal(t, "approved", prefs.got.AutoReturn)
	require.Len(t, prefs.got.Items, 1)
	require.Equal(t, 5, prefs.got.Items[0].Quantity)
	require.InDelta(t, 34.99, prefs.got.Items[0].UnitPrice, 0.0001)
	require.Equal(t, "BRL", prefs.got.Items[0].CurrencyID)
}

func TestCreateCharge_ProviderFailureHidesBody(t *testing.T) {
	c := &Client{preferences: &fakePreferences{err: errors.New("invalid access token")}, payments: &fakePayments{}}
	_, err := c.CreateCharge(context.Background(), &gateway.ChargeRequest{Amount: 100})
	var pe *gateway.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, gateway.GenericUserMessage, gateway.UserMessage(err))
}

func TestCheckStatus(t *testing.T) {
	c := &Client{payments: &fakePayments{byID: map[int]payment.Response{
		42: {ID: 42, Status: "approved", ExternalReference: "purchase-1"},
	}}}

	d, err := c.CheckStatus(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, gateway.StatusApproved, d.Status)
	require.Equal(t, "42", d.PaymentID)
	require.Equal(t, "purchase-1", d.ExternalReference)

	_, err = c.CheckStatus(context.Background(), "pref-1")
	require.ErrorIs(t, err, gateway.ErrPaymentNotFound)
}

func TestStatusByReference(t *testing.T) {
	fp := &fakePayments{}
	c := &Client{payments: fp}

	d, err := c.StatusByReference(context.Background(), "purchase-1")
	require.NoError(t, err)
	require.Equal(t, gateway.StatusPending, d.Status)
	require.Equal(t, "purchase-1", fp.filter["external_reference"])

	fp.search = []payment.Response{
		{ID: 1, Status: "rejected", ExternalReference: "purchase-1"},
		{ID: 2, Status: "approved", ExternalReference: "purchase-1"},
	}
	d, err = c.StatusByReference(context.Background(), "purchase-1")
	require.NoError(t, err)
	require.Equal(t, gateway.StatusApproved, d.Status)
	require.Equal(t, "2", d.PaymentID)
}

func TestMapStatus(t *testing.T) {
	require.Equal(t, gateway.StatusApproved, MapStatus("approved"))
	require.Equal(t, gateway.StatusPending, MapStatus("in_process"))
	require.Equal(t, gateway.StatusPending, MapStatus("authorized"))
	require.Equal(t, gateway.StatusOther, MapStatus("rejected"))
	require.Equal(t, gateway.StatusOther, MapStatus("cancelled"))
}
