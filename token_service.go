package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface on HMAC signed JWTs
type TokenServiceImpl struct {
	signingKey []byte
	method     *jwt.SigningMethodHMAC
	expiration time.Duration
	issuer     string
	clock      Clock
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithClock overrides the time source used to stamp and check tokens
func WithClock(clock Clock) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.clock = clock
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithIssuer stamps and requires the iss claim
func WithIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// NewTokenService creates a new TokenService instance. The algorithm must be
// one of the HMAC family (HS256, HS384, HS512).
func NewTokenService(signingKey []byte, algorithm string, expirationMinutes int, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	if len(signingKey) == 0 {
		return nil, goerrors.New("token signing key must not be empty", goerrors.CategoryBadInput)
	}

	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, goerrors.New("unsupported token signing algorithm", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"algorithm": algorithm})
	}

	if expirationMinutes <= 0 {
		return nil, goerrors.New("token expiration must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"expiration_minutes": expirationMinutes})
	}

	ts := &TokenServiceImpl{
		signingKey: signingKey,
		method:     method,
		expiration: time.Duration(expirationMinutes) * time.Minute,
		clock:      time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// NewTokenServiceFromConfig builds the service from auth options
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	opts = append([]TokenServiceOption{WithIssuer(cfg.GetIssuer())}, opts...)
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetSigningMethod(),
		cfg.GetTokenExpiration(),
		opts...,
	)
}

// Expiration is the lifetime applied by Generate
func (ts *TokenServiceImpl) Expiration() time.Duration {
	return ts.expiration
}

// Generate creates a token for identity using the configured expiration
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}
	return ts.Issue(IdentityClaims(identity), ts.expiration)
}

// Issue signs claims with exp set to now plus ttl. Missing iat and jti
// claims are filled in.
func (ts *TokenServiceImpl) Issue(claims map[string]any, ttl time.Duration) (string, error) {
	now := ts.clock()

	mc := make(jwt.MapClaims, len(claims)+3)
	for k, v := range claims {
		mc[k] = v
	}

	mc[ClaimExpiresAt] = jwt.NewNumericDate(now.Add(ttl))

	if _, ok := mc[ClaimIssuedAt]; !ok {
		mc[ClaimIssuedAt] = jwt.NewNumericDate(now)
	}

	if _, ok := mc[ClaimTokenID]; !ok {
		mc[ClaimTokenID] = uuid.NewString()
	}

	if ts.issuer != "" {
		if _, ok := mc[ClaimIssuer]; !ok {
			mc[ClaimIssuer] = ts.issuer
		}
	}

	signed, err := jwt.NewWithClaims(ts.method, mc).SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Decode verifies the token and returns its claim mapping
func (ts *TokenServiceImpl) Decode(raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if err := ts.parse(raw, claims); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(raw string) (AuthClaims, error) {
	claims := &JWTClaims{}
	if err := ts.parse(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenServiceImpl) parse(raw string, claims jwt.Claims) error {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.method.Alg()}),
		jwt.WithTimeFunc(ts.clock),
		jwt.WithExpirationRequired(),
	}

	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		// signature problems win over expiry so forged tokens never read as expired
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) || errors.Is(err, jwt.ErrTokenMalformed) {
			return withSource(ErrTokenInvalid, err)
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return withSource(ErrTokenExpired, err)
		}
		return withSource(ErrTokenInvalid, err)
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}
