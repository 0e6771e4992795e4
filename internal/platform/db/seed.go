package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/domain/auth"
	"paycore/internal/platform/config"
)

// Seed provisions the RBAC catalog, the bootstrap accounts, and the
// settings singleton. Every statement is idempotent so the seeder runs
// on each boot without clobbering live data.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	roleIDs, err := seedRBAC(ctx, pool)
	if err != nil {
		return err
	}

	if err := seedAccount(ctx, pool, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	if cfg.SeedSystemAdminEmail != "" {
		_ = seedAccount(ctx, pool, roleIDs[auth.RoleSystemAdmin], cfg.SeedSystemAdminEmail, cfg.SeedSystemAdminPassword)
	}

	return seedSettings(ctx, pool, cfg)
}

// seedRBAC inserts the permission catalog, the built-in roles, and the
// role grants, returning role name -> id for the account seeding step.
func seedRBAC(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	batch := &pgx.Batch{}
	for _, key := range auth.DefaultPermissions {
		batch.Queue("INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", key)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("seed permissions: %w", err)
	}

	known := make(map[string]struct{}, len(auth.DefaultPermissions))
	for _, key := range auth.DefaultPermissions {
		known[key] = struct{}{}
	}

	roleIDs := make(map[string]string, len(auth.RolePermissions))
	for roleName, grants := range auth.RolePermissions {
		var roleID string
		err := pool.QueryRow(ctx,
			"INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id",
			roleName,
		).Scan(&roleID)
		if err != nil {
			return nil, fmt.Errorf("seed role %s: %w", roleName, err)
		}
		roleIDs[roleName] = roleID

		for _, grant := range grants {
			if _, ok := known[grant]; !ok {
				return nil, fmt.Errorf("role %s grants unknown permission %q", roleName, grant)
			}
		}
		_, err = pool.Exec(ctx, `
      INSERT INTO role_permissions (role_id, permission_id)
      SELECT $1, id FROM permissions WHERE key = ANY($2)
      ON CONFLICT DO NOTHING
    `, roleID, grants)
		if err != nil {
			return nil, fmt.Errorf("seed grants for %s: %w", roleName, err)
		}
	}
	return roleIDs, nil
}

// seedAccount creates a login if the email is not taken. Existing accounts
// are never touched, so a rotated seed password does not lock anyone out.
func seedAccount(ctx context.Context, pool *pgxpool.Pool, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO users (email, password_hash, role_id) VALUES ($1, $2, $3) ON CONFLICT (email) DO NOTHING",
		email, hash, roleID,
	)
	return err
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO app_settings (id, email_notifications_enabled, email_from)
    VALUES (1,$1,$2)
    ON CONFLICT (id) DO NOTHING
  `, cfg.EmailEnabled, cfg.EmailFrom)
	return err
}
