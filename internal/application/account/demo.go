package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ambulance-api/internal/domain"
	"github.com/ambulance-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is shared by all demo accounts.
const DemoPassword = "demo123"

type demoAccount struct {
	email    string
	role     string
	lastName string
}

var demoAccounts = []demoAccount{
	{email: "driver@demo.com", role: domain.RoleDriver, lastName: "Driver"},
	{email: "hospital@demo.com", role: domain.RoleHospital, lastName: "Hospital"},
	{email: "admin@demo.com", role: domain.RoleAdmin, lastName: "Admin"},
}

// SeedDemoUsers creates the demo accounts that do not exist yet and returns
// how many were created.
func (s *service) SeedDemoUsers(ctx context.Context) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.hashCost)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, d := range demoAccounts {
		_, err := s.users.GetByEmail(ctx, d.email)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return created, fmt.Errorf("lookup demo user %s: %w", d.email, err)
		}
		now := s.clock.Now().UTC()
		u := &domain.User{
			UserID:       id.New(),
			Username:     d.email,
			Email:        d.email,
			PasswordHash: string(hash),
			Role:         d.role,
			FirstName:    "Demo",
			LastName:     d.lastName,
			Verified:     true,
			VerifiedAt:   &now,
			IsDemo:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Put(ctx, u); err != nil {
			return created, fmt.Errorf("store demo user %s: %w", d.email, err)
		}
		slog.Info("created demo user", "email", d.email, "role", d.role)
		created++
	}
	return created, nil
}
