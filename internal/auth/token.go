// Package auth はアクセストークンの発行と検証を提供する。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken はトークンの署名・形式・有効期限のいずれかが不正な場合に返される。
var ErrInvalidToken = errors.New("invalid token")

// Claims は検証済みトークンのクレームを表す。
type Claims struct {
	// Email はトークンの主体のメールアドレス。クレームに含まれない場合は空文字。
	Email string
	// Values はiat・expを含むデコード済みの全クレーム。
	Values map[string]any
}

// TokenVerifier はトークンを検証するインターフェース。
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// TokenService は共有シークレットによるHS256トークンの発行・検証を行う。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue は呼び出し元のクレームにiatとexpを付与して署名する。
// 呼び出し元が指定したiat・expは上書きされる。
func (s *TokenService) Issue(claims map[string]any) (string, error) {
	now := s.now()
	mapClaims := make(jwt.MapClaims, len(claims)+2)
	for k, v := range claims {
		mapClaims[k] = v
	}
	mapClaims["iat"] = now.Unix()
	mapClaims["exp"] = now.Add(s.ttl).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify は署名アルゴリズム（HMACのみ）、署名、有効期限を検証し、クレームを返す。
func (s *TokenService) Verify(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if !mapClaims.VerifyExpiresAt(s.now().Unix(), true) {
		return nil, ErrInvalidToken
	}

	email, _ := mapClaims["email"].(string)
	return &Claims{Email: email, Values: mapClaims}, nil
}

var _ TokenVerifier = (*TokenService)(nil)
