package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const secret = "whsec_test_secret"

func TestSignVerify_RoundTrip(t *testing.T) {
	payload := []byte(`{"event":"payment.captured","payload":{}}`)
	sig := Sign(secret, payload)

	assert.Len(t, sig, 64)
	assert.True(t, Verify(secret, payload, sig))
}

func TestVerify_SingleByteMutation(t *testing.T) {
	payload := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`)
	sig := Sign(secret, payload)

	for i := range payload {
		mutated := append([]byte(nil), payload...)
		mutated[i] ^= 0x01
		assert.False(t, Verify(secret, mutated, sig), "mutation at byte %d verified", i)
	}

	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	assert.False(t, Verify(secret, payload, string(flipped)))
}

func TestVerify_Rejects(t *testing.T) {
	payload := []byte("order_1|pay_1")
	sig := Sign(secret, payload)

	tests := []struct {
		name      string
		secret    string
		signature string
	}{
		{"wrong secret", "other", sig},
		{"empty secret", "", sig},
		{"empty signature", secret, ""},
		{"not hex", secret, "zz" + sig[2:]},
		{"truncated", secret, sig[:32]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.secret, payload, tt.signature))
		})
	}
}

func TestVerify_AcceptsUppercaseAndWhitespace(t *testing.T) {
	payload := []byte("order_1|pay_1")
	sig := Sign(secret, payload)
	assert.True(t, Verify(secret, payload, " "+sig+"\n"))
	assert.True(t, Verify(secret, payload, strings.ToUpper(sig)))
}

func TestCallbackPayload(t *testing.T) {
	assert.Equal(t, []byte("order_1|pay_1"), CallbackPayload("order_1", "pay_1"))
}
