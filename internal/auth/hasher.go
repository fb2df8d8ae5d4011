package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"vulnreg/internal/logging"
)

// PasswordHasher wraps bcrypt. The produced hash self-describes its cost and
// salt, so verification needs no external state.
type PasswordHasher struct {
	cost   int
	logger logging.Logger
}

// NewPasswordHasher returns a hasher with the given bcrypt cost. Costs
// outside the bcrypt range fall back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int, logger logging.Logger) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost, logger: logger.With("module", "hasher")}
}

// Hash applies bcrypt with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches hash. Any parsing or format error
// is treated as a verification failure, not a fault, and is logged.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true
	}
	if err != bcrypt.ErrMismatchedHashAndPassword {
		h.logger.Warn(ctx, "stored password hash could not be parsed", "error", err)
	}
	return false
}
