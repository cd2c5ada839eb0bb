package auth

import (
	"errors"
	"net/http"
)

// MultiAuthenticator tries each authenticator in order. A method that finds
// no credentials passes to the next one; a method that rejects presented
// credentials ends the chain.
type MultiAuthenticator struct {
	authenticators []Authenticator
}

// NewMultiAuthenticator chains the given authenticators.
func NewMultiAuthenticator(authenticators ...Authenticator) *MultiAuthenticator {
	return &MultiAuthenticator{authenticators: authenticators}
}

// Authenticate returns the first successful result.
func (a *MultiAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	for _, authenticator := range a.authenticators {
		info, err := authenticator.Authenticate(r)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}

	return nil, ErrUnauthenticated
}

// Method returns the authentication method type.
func (a *MultiAuthenticator) Method() AuthMethod {
	return AuthMethodMulti
}

// New builds the authenticator for a configured mode. Mode "none" returns
// nil, which the middleware treats as open access.
func New(mode, basicUsers, apiKeys string) (Authenticator, error) {
	switch AuthMethod(mode) {
	case AuthMethodNone, "":
		return nil, nil
	case AuthMethodBasic:
		basic, err := NewBasicAuthenticator(basicUsers)
		if err != nil {
			return nil, err
		}
		return basic, nil
	case AuthMethodAPIKey:
		keys, err := NewAPIKeyAuthenticator(apiKeys)
		if err != nil {
			return nil, err
		}
		return keys, nil
	case AuthMethodMulti:
		var chain []Authenticator
		if basicUsers != "" {
			basic, err := NewBasicAuthenticator(basicUsers)
			if err != nil {
				return nil, err
			}
			chain = append(chain, basic)
		}
		if apiKeys != "" {
			keys, err := NewAPIKeyAuthenticator(apiKeys)
			if err != nil {
				return nil, err
			}
			chain = append(chain, keys)
		}
		if len(chain) == 0 {
			return nil, errors.New("multi auth: at least one of basic users or API keys must be set")
		}
		return NewMultiAuthenticator(chain...), nil
	default:
		return nil, errors.New("unknown auth mode: " + mode)
	}
}
