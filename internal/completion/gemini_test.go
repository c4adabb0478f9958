package completion

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"quota exhausted", &googleapi.Error{Code: http.StatusTooManyRequests}, ErrQuota},
		{"bad api key", &googleapi.Error{Code: http.StatusUnauthorized}, ErrAuth},
		{"forbidden project", &googleapi.Error{Code: http.StatusForbidden}, ErrAuth},
		{"server error stays generic", &googleapi.Error{Code: http.StatusInternalServerError}, nil},
		{"plain error stays generic", errors.New("connection reset"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyGeminiError(fmt.Errorf("send: %w", tt.err))
			if tt.want != nil {
				if !errors.Is(got, tt.want) {
					t.Fatalf("classifyGeminiError(%v) = %v, want %v", tt.err, got, tt.want)
				}
				return
			}
			if errors.Is(got, ErrQuota) || errors.Is(got, ErrAuth) {
				t.Fatalf("classifyGeminiError(%v) = %v, want generic", tt.err, got)
			}
		})
	}
}
