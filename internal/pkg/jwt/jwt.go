package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is shared by every artifact the service signs. Purpose keeps a
// session token from being accepted where a verification or re-auth ticket
// is expected, and the other way round.
type Claims struct {
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Provider string `json:"provider,omitempty"`
	Purpose  string `json:"purpose"`
	Version  int64  `json:"ver,omitempty"`
	jwtlib.RegisteredClaims
}

func Sign(claims Claims, secret []byte, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims.IssuedAt = jwtlib.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwtlib.NewNumericDate(issuedAt.Add(ttl))
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseTokenAt validates signature and expiry against the supplied clock.
func ParseTokenAt(tokenString string, secret []byte, now func() time.Time) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwtlib.WithTimeFunc(now), jwtlib.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
