package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	body := []byte(`{"reference":"stub_1","status":"COMPLETED"}`)
	sig := Sign("s3cret", body)
	assert.Len(t, sig, 64)
	assert.True(t, Verify("s3cret", body, sig))
	assert.False(t, Verify("other", body, sig))
	assert.False(t, Verify("s3cret", []byte(`{}`), sig))
	assert.False(t, Verify("", body, sig), "an empty secret never verifies")
	assert.False(t, Verify("s3cret", body, ""))
}

func TestStubProvider(t *testing.T) {
	p := &StubProvider{BaseURL: "http://localhost:8080"}
	res, err := p.InitiateCheckout(context.Background(), CheckoutRequest{
		EstablishmentID: 3,
		IdempotencyKey:  "abc",
		ExpiresIn:       time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "stub_3_abc", res.Reference)
	assert.Equal(t, "PENDING", res.Status)
	assert.Equal(t, "http://localhost:8080/checkout/stub_3_abc", res.CheckoutURL)
	assert.True(t, res.ExpiresAt.After(time.Now()))
	assert.Equal(t, "stub", p.Name())
}
