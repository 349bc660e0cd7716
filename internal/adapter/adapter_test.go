package adapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type emptyError struct{}

func (emptyError) Error() string { return "" }

func TestFail_Normalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "platform-reported message wins",
			err:  fmt.Errorf("posting: %w", &PlatformError{StatusCode: 400, Message: "Invalid OAuth access token"}),
			want: "Invalid OAuth access token",
		},
		{
			name: "platform error without message falls through to its own text",
			err:  &PlatformError{StatusCode: 500},
			want: "platform API error (status 500)",
		},
		{
			name: "transport error message",
			err:  errors.New("dial tcp: connection refused"),
			want: "dial tcp: connection refused",
		},
		{
			name: "nil error",
			err:  nil,
			want: "Unknown error",
		},
		{
			name: "error with empty text",
			err:  emptyError{},
			want: "Unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := Fail(tt.err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
			assert.Nil(t, res.Data)
		})
	}
}

func TestOK(t *testing.T) {
	t.Parallel()

	res := OK(map[string]string{"id": "42"})
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.NotNil(t, res.Data)
}
