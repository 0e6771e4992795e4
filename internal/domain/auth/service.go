package auth

// Service is the façade the HTTP layer depends on. It embeds the
// Postgres-backed Store directly; everything beyond storage — token
// hashing, TOTP validation, password policy — lives with the callers so
// this package stays a thin account/session ledger.
type Service struct {
	*Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}
