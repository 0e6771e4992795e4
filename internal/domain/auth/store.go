package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthUser is the credential row a login needs: identity, role, and the
// MFA state. The password field carries the bcrypt hash, never plaintext.
type AuthUser struct {
	ID           string
	RoleID       string
	RoleName     string
	Password     string
	MFAEnabled   bool
	MFASecretEnc []byte
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email, status string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.role_id, r.name, u.password_hash, u.mfa_enabled, u.mfa_secret_enc
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE u.email = $1 AND u.status = $2
  `, email, status).Scan(&out.ID, &out.RoleID, &out.RoleName, &out.Password, &out.MFAEnabled, &out.MFASecretEnc)
	return out, err
}

func (s *Store) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	return userID, err
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", hash, userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	var allowed bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1
      FROM role_permissions rp
      JOIN permissions p ON rp.permission_id = p.id
      WHERE rp.role_id = $1 AND p.key = $2
    )
  `, roleID, permission).Scan(&allowed)
	return allowed, err
}

// Sessions are stored hashed; the JWT carries the raw session id and every
// check re-hashes it, so a database leak exposes no usable tokens.

func (s *Store) CreateSession(ctx context.Context, userID, sessionTokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx,
		"INSERT INTO sessions (user_id, token_hash, expires_at) VALUES ($1,$2,$3)",
		userID, sessionTokenHash, expires)
	return err
}

func (s *Store) SessionValid(ctx context.Context, userID, sessionTokenHash string) (bool, error) {
	var valid bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM sessions
      WHERE user_id = $1 AND token_hash = $2
        AND expires_at > now() AND revoked_at IS NULL
    )
  `, userID, sessionTokenHash).Scan(&valid)
	return valid, err
}

func (s *Store) RevokeSession(ctx context.Context, userID, sessionTokenHash string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions SET revoked_at = now()
    WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL
  `, userID, sessionTokenHash)
	return err
}

func (s *Store) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET token_hash = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND token_hash = $4
  `, newHash, expires, userID, oldHash)
	return err
}

// UpdateMFASecret stages a new encrypted TOTP secret. Staging always drops
// the enabled flag; the user proves possession with a valid code before
// enable flips it back.
func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx,
		"UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2",
		secretEnc, userID)
	return err
}

func (s *Store) GetMFASecret(ctx context.Context, userID string) ([]byte, error) {
	var secretEnc []byte
	err := s.DB.QueryRow(ctx, "SELECT mfa_secret_enc FROM users WHERE id = $1", userID).Scan(&secretEnc)
	return secretEnc, err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx,
		"INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES ($1,$2,$3)",
		userID, tokenHash, expires)
	return err
}

func (s *Store) PasswordResetUserID(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT user_id FROM password_resets
    WHERE token_hash = $1 AND expires_at > now() AND used_at IS NULL
  `, tokenHash).Scan(&userID)
	return userID, err
}

func (s *Store) MarkPasswordResetUsed(ctx context.Context, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE password_resets SET used_at = now() WHERE token_hash = $1", tokenHash)
	return err
}
