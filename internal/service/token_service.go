package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService valida los tokens de handshake del canal websocket. Es
// opcional: sin secreto configurado, register_user se acepta tal cual lo
// declara el cliente.
type TokenService struct {
	secret []byte
	issuer string
}

type handshakeClaims struct {
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("handshake token invalid")
	ErrTokenExpired = errors.New("handshake token expired")
)

func NewTokenService(secret string) *TokenService {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: "satya-chat",
	}
}

// Issue firma un token HS256 cuyo subject es el id del usuario.
func (s *TokenService) Issue(userID int64, ttl time.Duration) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrTokenInvalid
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now().UTC()
	claims := handshakeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify comprueba que el token pertenece al usuario que dice registrarse.
func (s *TokenService) Verify(tokenString string, userID int64) error {
	if s == nil || len(s.secret) == 0 {
		return ErrTokenInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return ErrTokenInvalid
	}
	var claims handshakeClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if claims.Issuer != s.issuer {
		return ErrTokenInvalid
	}
	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subject != userID {
		return ErrTokenInvalid
	}
	return nil
}
