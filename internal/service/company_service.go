package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/companyhub/internal/storage"
)

// CompanyService is the company directory
type CompanyService struct {
	companies storage.Collection
	now       Clock
	logger    *slog.Logger
}

// NewCompanyService creates a company directory over store
func NewCompanyService(store storage.Store, now Clock, logger *slog.Logger) *CompanyService {
	if now == nil {
		now = SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanyService{
		companies: store.Collection(CompaniesCollection),
		now:       now,
		logger:    logger,
	}
}

// Create stores a new active company. Codes, emails and GST numbers need not be unique.
func (s *CompanyService) Create(ctx context.Context, fields domain.CompanyFields, createdBy *string) (_ *domain.Company, err error) {
	ctx, span := tracing.Start(ctx, "CompanyService.Create")
	defer func() { observe(span, "company", "create", err) }()

	if err := fields.Validate(); err != nil {
		return nil, err
	}

	company := &domain.Company{
		Name:      fields.Name,
		Code:      fields.Code,
		Address:   fields.Address,
		Pincode:   fields.Pincode,
		Email:     fields.Email,
		MobileNo:  fields.MobileNo,
		Phone:     fields.Phone,
		GSTNumber: fields.GSTNumber,
		Status:    domain.StatusActive,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	doc, err := storage.Encode(company)
	if err != nil {
		return nil, err
	}
	id, err := s.companies.Insert(ctx, doc)
	if err != nil {
		return nil, storageFailure("insert company", err)
	}
	company.ID = id

	s.logger.Info("company created",
		slog.String("company_id", id),
		slog.String("code", company.Code),
	)
	return company, nil
}

// Get returns a company in any status
func (s *CompanyService) Get(ctx context.Context, id string) (_ *domain.Company, err error) {
	ctx, span := tracing.Start(ctx, "CompanyService.Get")
	defer func() { observe(span, "company", "get", err) }()

	if !validID(id) {
		return nil, domain.NewValidationError(domain.MsgInvalidID)
	}
	return s.load(ctx, id)
}

// ListActive returns active companies in storage order
func (s *CompanyService) ListActive(ctx context.Context) (_ []*domain.Company, err error) {
	ctx, span := tracing.Start(ctx, "CompanyService.ListActive")
	defer func() { observe(span, "company", "list", err) }()

	docs, err := s.companies.Find(ctx, storage.Where(storage.Eq("status", domain.StatusActive)))
	if err != nil {
		return nil, storageFailure("list companies", err)
	}
	out := make([]*domain.Company, 0, len(docs))
	for _, doc := range docs {
		var c domain.Company
		if err := storage.Decode(doc, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, nil
}

// Update merges the set fields of update and stamps updated_at/updated_by
func (s *CompanyService) Update(ctx context.Context, id string, update domain.CompanyUpdate, updatedBy *string) (_ *domain.Company, err error) {
	ctx, span := tracing.Start(ctx, "CompanyService.Update")
	defer func() { observe(span, "company", "update", err) }()

	if !validID(id) {
		return nil, domain.NewValidationError(domain.MsgInvalidID)
	}
	if update.IsEmpty() {
		return nil, domain.NewValidationError(domain.MsgNoFieldsUpdate)
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	set := storage.Document(update.Changes())
	stamp(set, s.now(), updatedBy)
	if err := s.apply(ctx, id, set); err != nil {
		return nil, err
	}

	s.logger.Info("company updated", slog.String("company_id", id))
	return s.load(ctx, id)
}

// SoftDelete marks the company inactive. Repeating it re-stamps the audit fields.
func (s *CompanyService) SoftDelete(ctx context.Context, id string, updatedBy *string) (_ *domain.Company, err error) {
	ctx, span := tracing.Start(ctx, "CompanyService.SoftDelete")
	defer func() { observe(span, "company", "delete", err) }()

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

	s.logger.Info("company deactivated", slog.String("company_id", id))
	return s.load(ctx, id)
}

// Exists reports whether a company with id exists in any status.
// Malformed identifiers simply do not exist.
func (s *CompanyService) Exists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	_, err := s.companies.FindOne(ctx, storage.ByID(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNoDocument):
		return false, nil
	default:
		return false, storageFailure("find company", err)
	}
}

func (s *CompanyService) apply(ctx context.Context, id string, set storage.Document) error {
	matched, err := s.companies.UpdateOne(ctx, storage.ByID(id), set)
	if err != nil {
		return storageFailure("update company", err)
	}
	if matched == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *CompanyService) load(ctx context.Context, id string) (*domain.Company, error) {
	doc, err := s.companies.FindOne(ctx, storage.ByID(id))
	if errors.Is(err, storage.ErrNoDocument) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageFailure("find company", err)
	}
	var c domain.Company
	if err := storage.Decode(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
