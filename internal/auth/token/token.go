package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/crudforge/internal/auth/domain"
	"github.com/smallbiznis/crudforge/internal/clock"
	"github.com/smallbiznis/crudforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTTL = 30 * time.Minute

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
}

type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
	genID  *snowflake.Node
}

// New builds the HS256 token service. Outside production an empty secret is
// replaced by a random per-process one, so tokens die with the process.
func New(p Params) (domain.TokenService, error) {
	log := p.Log.Named("auth.token")

	secret := []byte(strings.TrimSpace(p.Cfg.AuthJWTSecret))
	if len(secret) == 0 {
		if p.Cfg.IsProduction() {
			return nil, domain.ErrMissingSecret
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		log.Warn("AUTH_JWT_SECRET not set, using a random secret for this process")
	}

	return NewWithSecret(secret, p.Cfg.AppName, p.Cfg.AuthTokenTTL, p.Clock, p.GenID), nil
}

func NewWithSecret(secret []byte, issuer string, ttl time.Duration, c clock.Clock, genID *snowflake.Node) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		secret: secret,
		issuer: strings.TrimSpace(issuer),
		ttl:    ttl,
		clock:  c,
		genID:  genID,
	}
}

func (s *Service) Issue(_ context.Context, p domain.Principal) (domain.Token, error) {
	// Claims carry the principal verbatim; org and role compare exactly.
	orgID, role := p.OrgID, p.Role
	if strings.TrimSpace(orgID) == "" {
		return domain.Token{}, domain.ErrInvalidOrganization
	}
	if strings.TrimSpace(role) == "" {
		return domain.Token{}, domain.ErrInvalidRole
	}

	now := s.clock.Now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	id := s.genID.Generate().String()

	claims := domain.Claims{
		OrgID: orgID,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.Token{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.Token{
		AccessToken: signed,
		TokenType:   domain.TokenTypeBearer,
		ExpiresAt:   expiresAt,
		ID:          id,
		Principal:   domain.Principal{OrgID: orgID, Role: role},
	}, nil
}

func (s *Service) Verify(_ context.Context, raw string) (*domain.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &domain.Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidToken, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.OrgID) == "" {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
