package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"paycore/internal/transport/http/api"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

type IdempotencyStore struct {
	db *pgxpool.Pool
}

func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *IdempotencyStore) Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}
	var storedHash string
	var stored json.RawMessage
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (user_id, key, endpoint)
    DO UPDATE SET response_json = EXCLUDED.response_json
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, userID, key, endpoint, requestHash, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// CheckIdempotency replays the stored response when the Idempotency-Key and
// payload match a previous request. The bool reports whether a response has
// already been written and the handler should stop.
func CheckIdempotency(w http.ResponseWriter, r *http.Request, store *IdempotencyStore, endpoint string, payload []byte) (string, bool) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || store == nil {
		return "", false
	}
	user, ok := GetUser(r.Context())
	if !ok {
		return "", false
	}

	stored, found, err := store.Check(r.Context(), user.UserID, endpoint, key, RequestHash(payload))
	if errors.Is(err, ErrIdempotencyConflict) {
		api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was already used with a different payload", GetRequestID(r.Context()))
		return key, true
	}
	if err != nil {
		zap.L().Warn("idempotency check failed", zap.String("endpoint", endpoint), zap.Error(err))
		return key, false
	}
	if found {
		api.Success(w, stored, GetRequestID(r.Context()))
		return key, true
	}
	return key, false
}

// SaveIdempotency records the successful response for later replays. Failures
// are logged only; the response has already been sent.
func SaveIdempotency(ctx context.Context, store *IdempotencyStore, endpoint, key string, payload []byte, response any) {
	if key == "" || store == nil {
		return
	}
	user, ok := GetUser(ctx)
	if !ok {
		return
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		zap.L().Warn("idempotency response marshal failed", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}
	if err := store.Save(ctx, user.UserID, endpoint, key, RequestHash(payload), responseJSON); err != nil && !errors.Is(err, ErrIdempotencyConflict) {
		zap.L().Warn("idempotency save failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
}
