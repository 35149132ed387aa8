package service

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"codeverse/internal/user/repository"
	appErr "codeverse/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) generateToken(user *repository.User) (string, time.Time, error) {
	if len(s.jwtSecret) == 0 {
		return "", time.Time{}, appErr.New(appErr.TokenGenerationFailed)
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, appErr.Wrap(fmt.Errorf("sign token failed: %w", err), appErr.TokenGenerationFailed)
	}
	return raw, expiresAt, nil
}

func (s *AuthService) parseToken(raw string) (*tokenClaims, error) {
	if raw == "" {
		return nil, appErr.New(appErr.TokenInvalid)
	}

	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErr.New(appErr.TokenExpired)
		}
		return nil, appErr.New(appErr.TokenInvalid)
	}
	if !parsed.Valid {
		return nil, appErr.New(appErr.TokenInvalid)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return nil, appErr.New(appErr.TokenInvalid)
	}
	if s.jwtIssuer != "" && claims.Issuer != s.jwtIssuer {
		return nil, appErr.New(appErr.TokenInvalid)
	}
	return claims, nil
}

func userIDFromClaims(claims *tokenClaims) (int64, error) {
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, appErr.New(appErr.TokenInvalid)
	}
	return userID, nil
}
