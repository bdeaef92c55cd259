// Package readers handles provisioning of the card reader devices that
// call the tap endpoint. A reader is registered, approved by an operator,
// and then authenticates with a signed token.
package readers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var tokenSignatureAlg = jwt.SigningMethodHS256

// Token errors
// TODO: when raised repeatedly for the same source these should feed an
// abuse counter, they are signs of probing
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
)

type ReaderClaim struct {
	ReaderID string `json:"reader_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies reader tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// NewToken issues a provisioning token for the reader.
func (s *TokenService) NewToken(readerID string) (string, error) {
	now := time.Now().UTC()

	claim := &ReaderClaim{
		ReaderID: readerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(tokenSignatureAlg, claim)
	return token.SignedString(s.secret)
}

// Decode verifies the signature and expiry and returns the claim.
func (s *TokenService) Decode(tokenString string) (*ReaderClaim, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &ReaderClaim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}))

	if err != nil {
		return nil, err
	} else if parsedToken == nil || !parsedToken.Valid {
		return nil, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(*ReaderClaim); ok {
		return claims, nil
	}

	return nil, ErrInvalidClaimType
}
