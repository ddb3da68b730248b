package config

const (
	ContextKey  = "user"
	TokenLookup = "header:Authorization,query:token"
	AuthScheme  = "Bearer"
)

func (s *Settings) GetSigningKey() string {
	return s.JWT.SecretKey
}

func (s *Settings) GetSigningMethod() string {
	return s.JWT.Algorithm
}

func (s *Settings) GetContextKey() string {
	return ContextKey
}

// GetTokenExpiration returns the token lifetime in minutes
func (s *Settings) GetTokenExpiration() int {
	return s.JWT.ExpirationMinutes
}

func (s *Settings) GetTokenLookup() string {
	return TokenLookup
}

func (s *Settings) GetAuthScheme() string {
	return AuthScheme
}

func (s *Settings) GetIssuer() string {
	return s.JWT.Issuer
}
