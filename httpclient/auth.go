package httpclient

import (
	"fmt"
	"net/http"
	"strings"
)

// AuthType identifies the authentication method.
type AuthType string

const (
	AuthNone   AuthType = ""
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	// AuthAPIKey sends a key in a header or query parameter.
	AuthAPIKey AuthType = "api_key"
	// AuthCustom delegates to Apply.
	AuthCustom AuthType = "custom"
)

// ParseAuthType accepts the config spelling of an auth type.
func ParseAuthType(s string) (AuthType, error) {
	switch t := AuthType(strings.ToLower(strings.TrimSpace(s))); t {
	case AuthNone, AuthBearer, AuthBasic, AuthAPIKey, AuthCustom:
		return t, nil
	case "none":
		return AuthNone, nil
	case "apikey", "api-key":
		return AuthAPIKey, nil
	default:
		return AuthNone, fmt.Errorf("httpclient: unknown auth type %q", s)
	}
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type AuthType `yaml:"type" mapstructure:"type"`
	// Token is the static bearer token.
	Token string `yaml:"token" mapstructure:"token"`
	// TokenFunc supplies the bearer token per request and wins over Token.
	// Use it when credentials are refreshed while the client is live.
	TokenFunc func() string `yaml:"-" mapstructure:"-"`
	Username  string        `yaml:"username" mapstructure:"username"`
	Password  string        `yaml:"password" mapstructure:"password"`
	Key       string        `yaml:"key" mapstructure:"key"`
	// In is "header" (default) or "query".
	In string `yaml:"in" mapstructure:"in"`
	// Name defaults to "X-API-Key".
	Name  string              `yaml:"name" mapstructure:"name"`
	Apply func(*http.Request) `yaml:"-" mapstructure:"-"`
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BearerTokenFunc creates a bearer auth config that reads the token on every request.
func BearerTokenFunc(fn func() string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, TokenFunc: fn}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// Validate checks the fields required by the chosen type.
func (a *AuthConfig) Validate() error {
	if a == nil {
		return nil
	}
	if _, err := ParseAuthType(string(a.Type)); err != nil {
		return err
	}
	switch a.Type {
	case AuthAPIKey:
		if a.In != "" && a.In != "header" && a.In != "query" {
			return fmt.Errorf("httpclient: api key location must be header or query, got %q", a.In)
		}
	case AuthCustom:
		if a.Apply == nil {
			return fmt.Errorf("httpclient: custom auth requires Apply")
		}
	}
	return nil
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		token := a.Token
		if a.TokenFunc != nil {
			token = a.TokenFunc()
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			q := req.URL.Query()
			q.Set(name, a.Key)
			req.URL.RawQuery = q.Encode()
		} else {
			req.Header.Set(name, a.Key)
		}
	case AuthCustom:
		if a.Apply != nil {
			a.Apply(req)
		}
	}
}
