package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/companyhub/internal/storage"
)

// CompanyChecker verifies company references
type CompanyChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// PasswordHasher hashes and verifies credentials
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// userRecord is the persisted user shape; it carries the hash the API never returns
type userRecord struct {
	domain.User
	Password string `json:"password"`
}

// UserService is the user directory
type UserService struct {
	users     storage.Collection
	companies CompanyChecker
	hasher    PasswordHasher
	now       Clock
	logger    *slog.Logger
}

// NewUserService creates a user directory over store
func NewUserService(store storage.Store, companies CompanyChecker, hasher PasswordHasher, now Clock, logger *slog.Logger) *UserService {
	if now == nil {
		now = SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:     store.Collection(UsersCollection),
		companies: companies,
		hasher:    hasher,
		now:       now,
		logger:    logger,
	}
}

// Create validates the company reference, then email uniqueness, then stores the
// user with a hashed password. Nothing is written when a check fails.
func (s *UserService) Create(ctx context.Context, fields domain.UserFields, createdBy *string) (_ *domain.User, err error) {
	ctx, span := tracing.Start(ctx, "UserService.Create")
	defer func() { observe(span, "user", "create", err) }()

	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCompany(ctx, fields.CompanyID); err != nil {
		return nil, err
	}
	if err := s.checkEmail(ctx, fields.Email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(fields.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     fields.Username,
		Email:        fields.Email,
		Phone:        fields.Phone,
		Gender:       fields.Gender,
		DOB:          fields.DOB,
		PasswordHash: hash,
		RoleID:       fields.RoleID,
		CompanyID:    fields.CompanyID,
		Status:       domain.StatusActive,
		CreatedBy:    createdBy,
		CreatedAt:    s.now(),
	}
	doc, err := storage.Encode(userRecord{User: *user, Password: hash})
	if err != nil {
		return nil, err
	}
	id, err := s.users.Insert(ctx, doc)
	if errors.Is(err, storage.ErrDuplicate) {
		// lost a race with a concurrent create of the same email
		return nil, domain.NewValidationError(domain.MsgEmailInUse)
	}
	if err != nil {
		return nil, storageFailure("insert user", err)
	}
	user.ID = id

	s.logger.Info("user created",
		slog.String("user_id", id),
		slog.String("company_id", user.CompanyID),
	)
	return user, nil
}

// Update merges the set fields of update. The company reference is checked only
// when company_id is present and the email only when email is present.
func (s *UserService) Update(ctx context.Context, id string, update domain.UserUpdate, updatedBy *string) (_ *domain.User, err error) {
	ctx, span := tracing.Start(ctx, "UserService.Update")
	defer func() { observe(span, "user", "update", err) }()

	if !validID(id) {
		return nil, domain.NewValidationError(domain.MsgInvalidID)
	}
	if update.IsEmpty() {
		return nil, domain.NewValidationError(domain.MsgNoFieldsUpdate)
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if update.CompanyID != nil {
		if err := s.checkCompany(ctx, *update.CompanyID); err != nil {
			return nil, err
		}
	}
	if update.Email != nil {
		if err := s.checkEmail(ctx, *update.Email, id); err != nil {
			return nil, err
		}
	}

	set := storage.Document(update.Changes())
	if update.Password != nil {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, err
		}
		set["password"] = hash
	}
	stamp(set, s.now(), updatedBy)
	if err := s.apply(ctx, id, set); err != nil {
		return nil, err
	}

	s.logger.Info("user updated", slog.String("user_id", id))
	return s.load(ctx, storage.ByID(id))
}

// SoftDelete marks the user inactive, which also ends its ability to authenticate
func (s *UserService) SoftDelete(ctx context.Context, id string, updatedBy *string) (_ *domain.User, err error) {
	ctx, span := tracing.Start(ctx, "UserService.SoftDelete")
	defer func() { observe(span, "user", "delete", err) }()

	if !validID(id) {
		return nil, domain.NewValidationError(domain.MsgInvalidID)
	}
	set := storage.Document{
		"status":     domain.StatusInactive,
		"updated_at": s.now(),
		"updated_by": updatedBy,
	}
	if err := s.apply(ctx, id, set); err != nil {
		return nil, err
	}

	s.logger.Info("user deactivated", slog.String("user_id", id))
	return s.load(ctx, storage.ByID(id))
}

// ListActive returns active users in storage order
func (s *UserService) ListActive(ctx context.Context) (_ []*domain.User, err error) {
	ctx, span := tracing.Start(ctx, "UserService.ListActive")
	defer func() { observe(span, "user", "list", err) }()

	docs, err := s.users.Find(ctx, storage.Where(storage.Eq("status", domain.StatusActive)))
	if err != nil {
		return nil, storageFailure("list users", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Get returns a user in any status
func (s *UserService) Get(ctx context.Context, id string) (_ *domain.User, err error) {
	ctx, span := tracing.Start(ctx, "UserService.Get")
	defer func() { observe(span, "user", "get", err) }()

	if !validID(id) {
		return nil, domain.NewValidationError(domain.MsgInvalidID)
	}
	return s.load(ctx, storage.ByID(id))
}

// GetActiveByUsername returns the active user with username, including its password hash
func (s *UserService) GetActiveByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.load(ctx, storage.Where(
		storage.Eq("username", username),
		storage.Eq("status", domain.StatusActive),
	))
}

// GetActiveByID returns the active user with id; malformed ids are not found
func (s *UserService) GetActiveByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	return s.load(ctx, storage.Where(
		storage.Eq(storage.IDField, id),
		storage.Eq("status", domain.StatusActive),
	))
}

func (s *UserService) checkCompany(ctx context.Context, companyID string) error {
	ok, err := s.companies.Exists(ctx, companyID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewValidationError(domain.MsgCompanyNotExist)
	}
	return nil
}

// checkEmail fails when another user (any status) already owns email
func (s *UserService) checkEmail(ctx context.Context, email, excludeID string) error {
	filter := storage.Where(storage.Eq("email", email))
	if excludeID != "" {
		filter = append(filter, storage.Ne(storage.IDField, excludeID))
	}
	_, err := s.users.FindOne(ctx, filter)
	switch {
	case err == nil:
		return domain.NewValidationError(domain.MsgEmailInUse)
	case errors.Is(err, storage.ErrNoDocument):
		return nil
	default:
		return storageFailure("find user by email", err)
	}
}

func (s *UserService) apply(ctx context.Context, id string, set storage.Document) error {
	matched, err := s.users.UpdateOne(ctx, storage.ByID(id), set)
	if errors.Is(err, storage.ErrDuplicate) {
		return domain.NewValidationError(domain.MsgEmailInUse)
	}
	if err != nil {
		return storageFailure("update user", err)
	}
	if matched == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UserService) load(ctx context.Context, filter storage.Filter) (*domain.User, error) {
	doc, err := s.users.FindOne(ctx, filter)
	if errors.Is(err, storage.ErrNoDocument) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageFailure("find user", err)
	}
	return decodeUser(doc)
}

func decodeUser(doc storage.Document) (*domain.User, error) {
	var rec userRecord
	if err := storage.Decode(doc, &rec); err != nil {
		return nil, err
	}
	user := rec.User
	user.PasswordHash = rec.Password
	return &user, nil
}
