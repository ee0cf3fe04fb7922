package idempotency

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/cart/checkout", nil)
	assert.Empty(t, Key(r))

	r.Header.Set(Header, "  abc-123 ")
	assert.Equal(t, "abc-123", Key(r))
}
