package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
)

func TestCompanyService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.companies.Create(ctx, companyFields("acme"), strPtr("admin"))
	require.NoError(t, err)
	assert.True(t, validID(c.ID))
	assert.Equal(t, domain.StatusActive, c.Status)
	assert.Nil(t, c.UpdatedAt)
	assert.Nil(t, c.UpdatedBy)
	assert.Equal(t, "admin", *c.CreatedBy)
	assert.Equal(t, f.clock.Now(), c.CreatedAt)

	got, err := f.companies.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Nil(t, got.UpdatedAt)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
}

func TestCompanyService_CreateAllowsDuplicateCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.companies.Create(ctx, companyFields("acme"), nil)
	require.NoError(t, err)
	_, err = f.companies.Create(ctx, companyFields("acme"), nil)
	require.NoError(t, err)
}

func TestCompanyService_CreateRejectsMissingFields(t *testing.T) {
	f := newFixture(t)
	fields := companyFields("acme")
	fields.GSTNumber = ""

	_, err := f.companies.Create(context.Background(), fields, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompanyService_SoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.mustCompany(t, "keep")
	drop := f.mustCompany(t, "drop")

	f.clock.Advance(time.Hour)
	deleted, err := f.companies.SoftDelete(ctx, drop.ID, strPtr("ops"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, deleted.Status)
	require.NotNil(t, deleted.UpdatedAt)
	assert.True(t, f.clock.Now().Equal(*deleted.UpdatedAt))
	assert.Equal(t, "ops", *deleted.UpdatedBy)

	got, err := f.companies.Get(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, got.Status)

	active, err := f.companies.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	// repeating is allowed and re-stamps the audit fields
	f.clock.Advance(time.Minute)
	again, err := f.companies.SoftDelete(ctx, drop.ID, strPtr("ops2"))
	require.NoError(t, err)
	assert.Equal(t, "ops2", *again.UpdatedBy)
	assert.True(t, f.clock.Now().Equal(*again.UpdatedAt))

	exists, err := f.companies.Exists(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCompanyService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.mustCompany(t, "acme")

	f.clock.Advance(time.Hour)
	updated, err := f.companies.Update(ctx, c.ID, domain.CompanyUpdate{
		Name:  strPtr("Acme Holdings"),
		Phone: strPtr("080-1234"),
	}, strPtr("editor"))
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", updated.Name)
	assert.Equal(t, "080-1234", *updated.Phone)
	assert.Equal(t, c.Code, updated.Code)
	assert.Equal(t, "editor", *updated.UpdatedBy)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, f.clock.Now().Equal(*updated.UpdatedAt))
	assert.True(t, c.CreatedAt.Equal(updated.CreatedAt))
}

func TestCompanyService_UpdateWithoutActorKeepsUpdatedBy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.mustCompany(t, "acme")

	_, err := f.companies.Update(ctx, c.ID, domain.CompanyUpdate{Name: strPtr("Acme 2")}, strPtr("editor"))
	require.NoError(t, err)

	updated, err := f.companies.Update(ctx, c.ID, domain.CompanyUpdate{Name: strPtr("Acme 3")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme 3", updated.Name)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, "editor", *updated.UpdatedBy)
}

func TestCompanyService_UpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.mustCompany(t, "acme")

	_, err := f.companies.Update(ctx, c.ID, domain.CompanyUpdate{}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualError(t, err, domain.MsgNoFieldsUpdate)

	_, err = f.companies.Update(ctx, "not-a-uuid", domain.CompanyUpdate{Name: strPtr("x")}, nil)
	assert.EqualError(t, err, domain.MsgInvalidID)

	_, err = f.companies.Update(ctx, "9b2f8c1e-8d5a-4e0b-9f57-2f1d7c9a0b11", domain.CompanyUpdate{Name: strPtr("x")}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.companies.Update(ctx, c.ID, domain.CompanyUpdate{Email: strPtr("nope")}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompanyService_NotFoundAndMalformed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.companies.Get(ctx, "9b2f8c1e-8d5a-4e0b-9f57-2f1d7c9a0b11")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.companies.Get(ctx, "123")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.companies.SoftDelete(ctx, "9b2f8c1e-8d5a-4e0b-9f57-2f1d7c9a0b11", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	exists, err := f.companies.Exists(ctx, "123")
	require.NoError(t, err)
	assert.False(t, exists)
}
