package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/educheck-service/internal/config"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

var (
	ErrIdentityExists  = errors.New("an account with this email already exists")
	ErrInvalidIdentity = errors.New("identity could not be verified")
)

// Identity is what the identity provider vouches for.
type Identity struct {
	UserID      string
	Email       string
	FirstName   string
	LastName    string
	AccessToken string
}

type NewIdentity struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// IdentityProvider is the external authentication service.
type IdentityProvider interface {
	Register(ctx context.Context, input NewIdentity) (*Identity, error)
	ExchangeCode(ctx context.Context, code, state string) (*Identity, error)
	VerifyToken(ctx context.Context, accessToken string) (*Identity, error)
}

type CasdoorProvider struct {
	client *casdoorsdk.Client
	org    string
	logger *slog.Logger
}

func NewCasdoorProvider(cfg config.CasdoorConfig, logger *slog.Logger) *CasdoorProvider {
	return &CasdoorProvider{
		client: casdoorsdk.NewClient(
			cfg.Endpoint,
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.Certificate,
			cfg.OrganizationName,
			cfg.ApplicationName,
		),
		org:    cfg.OrganizationName,
		logger: logger,
	}
}

func (p *CasdoorProvider) Register(ctx context.Context, input NewIdentity) (*Identity, error) {
	existing, err := p.client.GetUserByEmail(input.Email)
	if err == nil && existing != nil && existing.Id != "" {
		return nil, ErrIdentityExists
	}

	user := &casdoorsdk.User{
		Owner:       p.org,
		Name:        usernameFromEmail(input.Email),
		Email:       input.Email,
		Password:    input.Password,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		DisplayName: strings.TrimSpace(input.FirstName + " " + input.LastName),
		Tag:         input.Role,
		Type:        "normal-user",
	}

	ok, err := p.client.AddUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	if !ok {
		return nil, ErrIdentityExists
	}

	created, err := p.client.GetUserByEmail(input.Email)
	if err != nil || created == nil {
		return nil, fmt.Errorf("failed to load created identity: %w", err)
	}

	p.logger.Info("Identity registered", "user_id", created.Id, "email", input.Email)
	return &Identity{
		UserID:    created.Id,
		Email:     created.Email,
		FirstName: created.FirstName,
		LastName:  created.LastName,
	}, nil
}

func (p *CasdoorProvider) ExchangeCode(ctx context.Context, code, state string) (*Identity, error) {
	token, err := p.client.GetOAuthToken(code, state)
	if err != nil {
		p.logger.Warn("OAuth code exchange failed", "error", err)
		return nil, ErrInvalidIdentity
	}
	return p.VerifyToken(ctx, token.AccessToken)
}

func (p *CasdoorProvider) VerifyToken(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := p.client.ParseJwtToken(accessToken)
	if err != nil {
		return nil, ErrInvalidIdentity
	}
	return &Identity{
		UserID:      claims.User.Id,
		Email:       claims.User.Email,
		FirstName:   claims.User.FirstName,
		LastName:    claims.User.LastName,
		AccessToken: accessToken,
	}, nil
}

// usernameFromEmail builds a Casdoor user name. Casdoor names are unique per
// organization and may not contain '@'.
func usernameFromEmail(email string) string {
	name := strings.ToLower(strings.TrimSpace(email))
	return strings.NewReplacer("@", "_at_", "+", "_").Replace(name)
}
