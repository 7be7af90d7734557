package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	name  string
	calls *[]string
	fail  bool
	boom  bool
}

func (h recordingHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	*h.calls = append(*h.calls, "before:"+h.name)
	if h.boom {
		panic("boom")
	}
	if h.fail {
		return ctx, km, data, errors.New("rejected")
	}
	return ctx, km, append(data, h.name...), nil
}

func (h recordingHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {
	*h.calls = append(*h.calls, "after:"+h.name)
}

func (h recordingHook) OnError(context.Context, string, kafka.Message, []byte, error) {
	*h.calls = append(*h.calls, "error:"+h.name)
}

func TestHookChainOrder(t *testing.T) {
	var calls []string
	chain := NewHookChain(recordingHook{name: "a", calls: &calls}, nil, recordingHook{name: "b", calls: &calls})

	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "xab", string(data))
	chain.AfterHandle(ctx, "t", km, data, nil)

	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, calls)
}

func TestHookChainStopsOnError(t *testing.T) {
	var calls []string
	chain := NewHookChain(recordingHook{name: "a", calls: &calls, fail: true}, recordingHook{name: "b", calls: &calls})

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"before:a", "error:a", "error:b"}, calls)
}

func TestHookChainRecoversPanic(t *testing.T) {
	var calls []string
	chain := NewHookChain(recordingHook{name: "a", calls: &calls, boom: true})

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestTraceHookCarriesTraceID(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: traceHeader, Value: []byte("req-1")}}}
	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "req-1", TraceIDFrom(ctx))
	assert.Empty(t, TraceIDFrom(context.Background()))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}
