package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "configuration",
			err:  Configuration("no token for %s", "owner/repo"),
			want: KindConfiguration,
		},
		{
			name: "wrapped permission",
			err:  fmt.Errorf("failed to resolve thread: %w", Permission("resolve", errors.New("403"))),
			want: KindPermission,
		},
		{
			name: "transient",
			err:  Transient("post reply", errors.New("502 bad gateway")),
			want: KindTransient,
		},
		{
			name: "not found",
			err:  NotFound("comment %d not found", 42),
			want: KindNotFound,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestNewNilError(t *testing.T) {
	assert.NoError(t, New(KindTransient, "op", nil))
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("rate limited")
	err := Transient("list comments", base)

	assert.True(t, errors.Is(err, base))
	assert.True(t, IsTransient(err))
	assert.False(t, IsConfiguration(err))
	assert.Equal(t, "transient: list comments: rate limited", err.Error())
}
