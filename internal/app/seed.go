package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"principal-registry/internal/config"
	"principal-registry/internal/domain"
	"principal-registry/internal/service/security"
)

// seedPrincipals creates the configured principals. Ones that already exist
// (same email or external id) are skipped, so restarts are idempotent.
func seedPrincipals(ctx context.Context, svc *security.PrincipalService, seeds []config.SeedPrincipal, logger *slog.Logger) error {
	for _, s := range seeds {
		p, err := svc.Create(ctx, domain.CreatePrincipalRequest{
			Name:       s.Name,
			Email:      s.Email,
			ExternalID: s.ExternalID,
		})
		var conflict *domain.ConflictError
		switch {
		case errors.As(err, &conflict):
			logger.Debug("seed principal exists", "email", s.Email)
		case err != nil:
			return fmt.Errorf("seed principal %s: %w", s.Email, err)
		default:
			logger.Info("seed principal created", "id", p.ID, "email", p.Email)
		}
	}
	return nil
}
