// Package service — AuthService authenticates backoffice operators and
// issues the JWTs guarding the review endpoints. Customer-facing identity
// lives in the external provider; this is staff auth only.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/larimar/onboarding-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

// AuthService orchestrates backoffice authentication.
type AuthService struct {
	store     port.OperatorStore
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.OperatorStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// OperatorClaims are the JWT claims for a backoffice session.
type OperatorClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Login verifies operator credentials and issues an access token.
// Unknown email and wrong password produce the same error; no user
// enumeration through the login endpoint.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if req.Email == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email y contraseña son requeridos"}
	}

	op, err := s.store.GetOperatorByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("operator lookup: %w", err)
	}
	if op == nil {
		return nil, &domain.ErrUnauthorized{Message: "Credenciales inválidas"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("operator login failed",
			zap.String("email", req.Email),
		)
		return nil, &domain.ErrUnauthorized{Message: "Credenciales inválidas"}
	}

	token, err := s.issueAccessToken(op)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	resp := &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}
	resp.Operator.ID = op.ID
	resp.Operator.Name = op.Name
	resp.Operator.Email = op.Email
	resp.Operator.Role = op.Role

	s.logger.Info("operator logged in",
		zap.String("operator_id", op.ID),
		zap.String("role", op.Role),
	)
	return resp, nil
}

func (s *AuthService) issueAccessToken(op *domain.Operator) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		Sub:   op.ID,
		Email: op.Email,
		Role:  op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "onboarding-bfa",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateAccessToken parses and verifies an operator JWT.
func (s *AuthService) ValidateAccessToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido o expirado"}
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido o expirado"}
	}
	return claims, nil
}
