package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProducer_PublishNeverBlocks(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, zap.NewNop())

	p.Publish("order.created", []byte("ORD-1"), []byte(`{}`))
	p.Publish("order.created", []byte("ORD-2"), []byte(`{}`))

	require.Len(t, p.inbox, 1)
	m := <-p.inbox
	assert.Equal(t, "order.created", m.Topic)
	assert.Equal(t, []byte("ORD-1"), m.Key)
}
