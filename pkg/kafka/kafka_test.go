package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestDisabledProducer(t *testing.T) {
	p := NewProducer(nil)
	assert.False(t, p.Enabled())

	err := p.Publish(context.Background(), "orders", "k", []byte("{}"))
	assert.ErrorIs(t, err, ErrDisabled)
	require.NoError(t, p.Close())
}

func TestWriterIsCachedPerTopic(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"})
	w1 := p.writer("orders")
	w2 := p.writer("orders")
	w3 := p.writer("carts")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.Equal(t, "orders", w1.Topic)
	require.NoError(t, p.Close())
}
