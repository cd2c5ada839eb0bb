package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vyrodovalexey/stockmatch/internal/auth"
)

// mockAuthenticator is a test double for auth.Authenticator.
type mockAuthenticator struct {
	info   *auth.AuthInfo
	err    error
	called bool
}

func (m *mockAuthenticator) Authenticate(_ *http.Request) (*auth.AuthInfo, error) {
	m.called = true
	return m.info, m.err
}

func (m *mockAuthenticator) Method() auth.AuthMethod {
	return auth.AuthMethodNone
}

func TestMultiAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken")
	ok := &auth.AuthInfo{Method: auth.AuthMethodAPIKey, Subject: "till-1"}

	tests := []struct {
		name        string
		chain       func() []*mockAuthenticator
		wantSubject string
		wantErrIs   error
		wantCalled  []bool
	}{
		{
			name:       "empty chain",
			chain:      func() []*mockAuthenticator { return nil },
			wantErrIs:  auth.ErrUnauthenticated,
			wantCalled: nil,
		},
		{
			name: "falls through missing credentials",
			chain: func() []*mockAuthenticator {
				return []*mockAuthenticator{{err: auth.ErrUnauthenticated}, {info: ok}}
			},
			wantSubject: "till-1",
			wantCalled:  []bool{true, true},
		},
		{
			name: "stops at first success",
			chain: func() []*mockAuthenticator {
				return []*mockAuthenticator{{info: ok}, {err: errBroken}}
			},
			wantSubject: "till-1",
			wantCalled:  []bool{true, false},
		},
		{
			name: "stops at rejected credentials",
			chain: func() []*mockAuthenticator {
				return []*mockAuthenticator{{err: auth.ErrInvalidCredentials}, {info: ok}}
			},
			wantErrIs:  auth.ErrInvalidCredentials,
			wantCalled: []bool{true, false},
		},
		{
			name: "nobody has credentials",
			chain: func() []*mockAuthenticator {
				return []*mockAuthenticator{{err: auth.ErrUnauthenticated}, {err: auth.ErrUnauthenticated}}
			},
			wantErrIs:  auth.ErrUnauthenticated,
			wantCalled: []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			mocks := tt.chain()
			chain := make([]auth.Authenticator, len(mocks))
			for i, m := range mocks {
				chain[i] = m
			}
			multi := auth.NewMultiAuthenticator(chain...)

			// Act
			info, err := multi.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))

			// Assert
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErrIs)
				}
			} else if err != nil || info.Subject != tt.wantSubject {
				t.Errorf("Authenticate() = %+v, %v, want subject %s", info, err, tt.wantSubject)
			}
			for i, want := range tt.wantCalled {
				if mocks[i].called != want {
					t.Errorf("authenticator %d called = %v, want %v", i, mocks[i].called, want)
				}
			}
		})
	}
}

func TestMultiAuthenticator_Method(t *testing.T) {
	t.Parallel()

	if got := auth.NewMultiAuthenticator().Method(); got != auth.AuthMethodMulti {
		t.Errorf("Method() = %s, want %s", got, auth.AuthMethodMulti)
	}
}
