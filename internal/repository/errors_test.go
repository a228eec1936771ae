package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique violation", err: pgError(pgerrcode.UniqueViolation), want: ErrConflict},
		{name: "foreign key violation", err: pgError(pgerrcode.ForeignKeyViolation), want: ErrInvalidReference},
		{name: "check violation", err: pgError(pgerrcode.CheckViolation), want: ErrInvalidData},
		{name: "admin shutdown", err: pgError(pgerrcode.AdminShutdown), want: ErrUnavailable},
		{name: "connection failure", err: pgError(pgerrcode.ConnectionFailure), want: ErrUnavailable},
		{name: "network error", err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("boom")}, want: ErrUnavailable},
		{name: "broken pipe text", err: errors.New("write: broken pipe"), want: ErrUnavailable},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(fmt.Errorf("wrapped: %w", tt.err))
			require.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_PassThrough(t *testing.T) {
	assert.NoError(t, classifyError(nil))

	plain := errors.New("syntax error")
	got := classifyError(plain)
	assert.Equal(t, plain, got)

	other := pgError(pgerrcode.SyntaxError)
	assert.Equal(t, other, classifyError(other))
}

func TestWithRetry(t *testing.T) {
	newRepo := func() *PostgresRepository {
		r := newRepository(newFakeDB())
		r.retryDelays = []time.Duration{time.Millisecond, time.Millisecond}
		return r
	}

	t.Run("retries connection errors", func(t *testing.T) {
		calls := 0
		err := newRepo().withRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("dial tcp: connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("retries serialization failures", func(t *testing.T) {
		calls := 0
		err := newRepo().withRetry(context.Background(), func() error {
			calls++
			return pgError(pgerrcode.SerializationFailure)
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry constraint errors", func(t *testing.T) {
		calls := 0
		err := newRepo().withRetry(context.Background(), func() error {
			calls++
			return pgError(pgerrcode.UniqueViolation)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		r := newRepo()
		r.retryDelays = []time.Duration{time.Hour}

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := r.withRetry(ctx, func() error {
			calls++
			cancel()
			return errors.New("connection reset by peer")
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
