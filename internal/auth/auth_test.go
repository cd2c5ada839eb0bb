package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vyrodovalexey/stockmatch/internal/auth"
)

func TestWithAuthInfoAndFromContext(t *testing.T) {
	t.Parallel()

	// Arrange
	info := &auth.AuthInfo{Method: auth.AuthMethodAPIKey, Subject: "till-3"}

	// Act
	ctx := auth.WithAuthInfo(context.Background(), info)
	got, ok := auth.FromContext(ctx)

	// Assert
	if !ok {
		t.Fatal("FromContext() ok = false, want true")
	}
	if got != info {
		t.Errorf("FromContext() = %+v, want %+v", got, info)
	}
}

func TestFromContext_Empty(t *testing.T) {
	t.Parallel()

	// Act
	got, ok := auth.FromContext(context.Background())

	// Assert
	if ok || got != nil {
		t.Errorf("FromContext() = %+v, %v, want nil, false", got, ok)
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	errs := []error{
		auth.ErrUnauthenticated,
		auth.ErrInvalidAPIKey,
		auth.ErrInvalidCredentials,
	}

	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       string
		basicUsers string
		apiKeys    string
		wantNil    bool
		wantMethod auth.AuthMethod
		wantErr    bool
	}{
		{name: "none", mode: "none", wantNil: true},
		{name: "empty mode", mode: "", wantNil: true},
		{name: "basic", mode: "basic", basicUsers: "ana:$2a$04$hash", wantMethod: auth.AuthMethodBasic},
		{name: "basic without users", mode: "basic", wantErr: true},
		{name: "apikey", mode: "apikey", apiKeys: "k1:till-1", wantMethod: auth.AuthMethodAPIKey},
		{name: "apikey without keys", mode: "apikey", wantErr: true},
		{name: "multi with keys only", mode: "multi", apiKeys: "k1:till-1", wantMethod: auth.AuthMethodMulti},
		{name: "multi with nothing", mode: "multi", wantErr: true},
		{name: "multi with bad keys", mode: "multi", apiKeys: "nokey", wantErr: true},
		{name: "unknown mode", mode: "oidc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Act
			got, err := auth.New(tt.mode, tt.basicUsers, tt.apiKeys)

			// Assert
			if tt.wantErr {
				if err == nil {
					t.Error("New() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("New() = %v, want nil", got)
				}
				return
			}
			if got.Method() != tt.wantMethod {
				t.Errorf("Method() = %s, want %s", got.Method(), tt.wantMethod)
			}
		})
	}
}
