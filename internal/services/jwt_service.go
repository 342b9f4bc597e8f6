package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-todo-api/internal/models"
)

var (
	// ErrInvalidToken は署名・形式・発行者などが不正なトークンです。
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken は有効期限切れのトークンです。
	ErrExpiredToken = errors.New("token expired")
)

// JWTService はJWTトークンの生成と検証を扱います。
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService は新しいJWTServiceを作成します。
func NewJWTService(secret, issuer string, ttl time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

type todoClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken はJWTトークンを生成し、有効期限と一緒に返します。
func (s *JWTService) GenerateToken(userID, email string) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := todoClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken はJWTトークンを検証し、呼び出し元の Identity を返します。
func (s *JWTService) ValidateToken(tokenString string) (*models.Identity, error) {
	var claims todoClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &models.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
