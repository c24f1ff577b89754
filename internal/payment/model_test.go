package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusFailed, true},
		{StatusFailed, StatusCompleted, true},
		{StatusCompleted, StatusRefunded, true},

		{StatusCompleted, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusRefunded, StatusCompleted, false},
		{StatusPending, StatusRefunded, false},
		{StatusFailed, StatusPending, false},
		{StatusPending, "bogus", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestProviderForMethod(t *testing.T) {
	for method, want := range map[string]string{
		MethodCard:       ProviderStripe,
		MethodBancontact: ProviderStripe,
		MethodSEPA:       ProviderStripe,
		MethodMollie:     ProviderMollie,
		MethodPayPal:     ProviderMollie,
		MethodIDEAL:      ProviderMollie,
	} {
		got, err := ProviderForMethod(method)
		assert.NoError(t, err)
		assert.Equal(t, want, got, method)
	}

	_, err := ProviderForMethod(MethodCrypto)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	_, err = ProviderForMethod("cash")
	assert.ErrorIs(t, err, ErrInvalidMethod)

	assert.True(t, IsPayLater(MethodAfterService))
	assert.True(t, IsPayLater(MethodBankTransfer))
	assert.False(t, IsPayLater(MethodCard))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(18000), MinorUnits(decimal.RequireFromString("180")))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("9.995")))
	assert.Equal(t, "19.99", FromMinorUnits(1999).StringFixed(2))
}

func TestManager(t *testing.T) {
	m := NewManager(map[string]Provider{"Stripe": &fakeProvider{}, "mollie": nil})

	assert.True(t, m.Has(ProviderStripe))
	assert.False(t, m.Has(ProviderMollie))

	_, err := m.Get("paypal")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}
