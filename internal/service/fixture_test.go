package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/security/auth"
	"github.com/aryan0dhankhar/companyhub/internal/storage"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	store     storage.Store
	clock     *testClock
	companies *CompanyService
	users     *UserService
	auth      *AuthService
	tokens    *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, storage.NewMemoryStore(storage.DefaultIndexes))
}

func newFixtureWithStore(t *testing.T, store storage.Store) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager("test-secret", "").WithClock(clock.Now)

	companies := NewCompanyService(store, clock.Now, logger)
	users := NewUserService(store, companies, hasher, clock.Now, logger)
	return &fixture{
		store:     store,
		clock:     clock,
		companies: companies,
		users:     users,
		auth:      NewAuthService(users, hasher, tokens, 0, logger),
		tokens:    tokens,
	}
}

func strPtr(s string) *string { return &s }

func companyFields(name string) domain.CompanyFields {
	return domain.CompanyFields{
		Name:      name,
		Code:      "C-" + name,
		Address:   "1 Main Street",
		Pincode:   "560001",
		Email:     "info@" + name + ".io",
		MobileNo:  "9999999999",
		GSTNumber: "29ABCDE1234F1Z5",
	}
}

func userFields(username, email, companyID string) domain.UserFields {
	return domain.UserFields{
		Username:  username,
		Email:     email,
		Phone:     "8888888888",
		DOB:       domain.Date{Year: 1990, Month: time.May, Day: 17},
		Password:  "pw-" + username,
		CompanyID: companyID,
	}
}

func (f *fixture) mustCompany(t *testing.T, name string) *domain.Company {
	t.Helper()
	c, err := f.companies.Create(context.Background(), companyFields(name), nil)
	require.NoError(t, err)
	return c
}

func (f *fixture) mustUser(t *testing.T, username, email string) *domain.User {
	t.Helper()
	c := f.mustCompany(t, "co"+username)
	u, err := f.users.Create(context.Background(), userFields(username, email, c.ID), strPtr("admin"))
	require.NoError(t, err)
	return u
}
