package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("502 bad gateway")

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

func testPolicy(maxRetries int) Policy {
	return Policy{MaxRetries: maxRetries, BaseDelay: time.Millisecond, Retryable: isFlaky}
}

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		maxRetry  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", failures: 0, err: errFlaky, maxRetry: 3, wantCalls: 1},
		{name: "recovers after retries", failures: 2, err: errFlaky, maxRetry: 3, wantCalls: 3},
		{name: "exhausts retries", failures: 10, err: errFlaky, maxRetry: 2, wantCalls: 3, wantErr: true},
		{name: "non retryable", failures: 10, err: errors.New("403 forbidden"), maxRetry: 3, wantCalls: 1, wantErr: true},
		{name: "retries disabled", failures: 10, err: errFlaky, maxRetry: 0, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Do(context.Background(), zerolog.Nop(), testPolicy(tt.maxRetry), "op", func(ctx context.Context) (int, error) {
				calls++
				if calls <= tt.failures {
					return 0, tt.err
				}
				return 42, nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 42, got)
		})
	}
}

func TestDo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 5, BaseDelay: time.Hour, Retryable: isFlaky}

	calls := 0
	_, err := Do(ctx, zerolog.Nop(), p, "op", func(ctx context.Context) (struct{}, error) {
		calls++
		cancel()
		return struct{}{}, errFlaky
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
