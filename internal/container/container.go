package container

import (
	"fmt"
	"log/slog"

	"github.com/clemson-tix/tigertix/internal/config"
	"github.com/clemson-tix/tigertix/internal/helpers"
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/clemson-tix/tigertix/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Tokens *helpers.TokenIssuer

	AuthService      *services.AuthService
	EventService     *services.EventService
	InventoryService *services.InventoryService
	IntentClassifier services.IntentClassifier
	TokenSweeper     *services.TokenSweeper
}

// NewContainer builds the services over the two stores. The pools are owned
// by the caller, which closes them after the server stops.
func NewContainer(cfg *config.Config, logger *slog.Logger, ticketPool, identityPool models.Pool) (*Container, error) {
	signing := helpers.SigningKey{ID: cfg.JWTKeyID, Secret: []byte(cfg.JWTSecret)}
	var previous []helpers.SigningKey
	if cfg.JWTPreviousSecret != "" {
		previous = append(previous, helpers.SigningKey{
			ID:     cfg.JWTPreviousKeyID,
			Secret: []byte(cfg.JWTPreviousSecret),
		})
	}

	issuer, err := helpers.NewTokenIssuer(helpers.TokenConfig{
		Signing:    signing,
		Previous:   previous,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	// Initialize repositories
	ticketStore := models.NewTicketStore(ticketPool)
	identityStore := models.NewIdentityStore(identityPool)

	return &Container{
		Config: cfg,
		Logger: logger,
		Tokens: issuer,
		AuthService: services.NewAuthService(identityStore, identityStore, issuer, logger, services.AuthConfig{
			BcryptCost:       cfg.BcryptCost,
			PasswordResetTTL: cfg.PasswordResetTTL,
		}),
		EventService:     services.NewEventService(ticketStore, logger),
		InventoryService: services.NewInventoryService(ticketStore, logger, cfg.PurchaseRetries),
		IntentClassifier: services.NewKeywordClassifier(),
		TokenSweeper:     services.NewTokenSweeper(identityStore, cfg.SweepInterval, logger),
	}, nil
}
