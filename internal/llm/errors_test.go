package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsContextLengthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{
			name: "openai style message",
			err:  errors.New("bad status 400: this model's maximum context length is 4096 tokens"),
			want: true,
		},
		{
			name: "error code",
			err:  errors.New(`bad status 400: {"error":{"code":"context_length_exceeded"}}`),
			want: true,
		},
		{
			name: "too many tokens",
			err:  errors.New("bad status 422: too many tokens in request"),
			want: true,
		},
		{
			name: "wrapped error",
			err:  fmt.Errorf("failed to generate answer: %w", errors.New("context length exceeded")),
			want: true,
		},
		{
			name: "case insensitive",
			err:  errors.New("Maximum Context Length reached"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "unrelated 400",
			err:  errors.New("bad status 400: invalid model name"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContextLengthError(tt.err); got != tt.want {
				t.Errorf("IsContextLengthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
