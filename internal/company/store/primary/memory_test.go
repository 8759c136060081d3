package primary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"orgprofile/internal/company/models"
	"orgprofile/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemory().WithClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func newCompany(code, name string) models.Company {
	return models.Company{
		Code:      code,
		Name:      name,
		Telephone: "+44 1",
		Email:     "info@" + code + ".example",
		Address:   models.Address{Line1: "1 High St", City: "Leeds", PostCode: "LS1", CountryCode: "GB"},
	}
}

func (s *InMemorySuite) TestCreate() {
	s.Run("stamps creation time", func() {
		created, err := s.store.Create(s.ctx, newCompany("ZC1", "Acme"))
		s.Require().NoError(err)
		s.Equal(s.now, *created.CreatedAt)
		s.Nil(created.UpdatedAt)
	})

	s.Run("rejects existing code", func() {
		_, err := s.store.Create(s.ctx, newCompany("ZC1", "Other"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("get returns ErrNotFound for unknown code", func() {
		_, err := s.store.Get(s.ctx, "ZC404")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestCreateOrUpdateUnionsFields() {
	first := newCompany("ZC1", "Acme")
	first.LocalName = models.Ptr("Acme Local")
	_, err := s.store.CreateOrUpdate(s.ctx, first)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	partial := models.Company{Code: "ZC1", Name: "Acme Renamed", CompanySize: models.Ptr(models.CompanySizeMicro)}
	updated, err := s.store.CreateOrUpdate(s.ctx, partial)
	s.Require().NoError(err)

	s.Equal("Acme Renamed", updated.Name)
	s.Equal("Acme Local", *updated.LocalName)
	s.Equal("Leeds", updated.Address.City)
	s.Equal(models.CompanySizeMicro, *updated.CompanySize)
	s.Equal(s.now, *updated.UpdatedAt)
	s.Equal(s.now.Add(-time.Hour), *updated.CreatedAt)
}

func (s *InMemorySuite) TestLookups() {
	a := newCompany("ZC1", "Acme")
	a.LocalName = models.Ptr("Company")
	a.SubscriptionType = models.Ptr("ST004")
	a.MembershipStatus = models.Ptr(models.MembershipActive)
	b := newCompany("ZC2", "Beta")
	b.LocalName = models.Ptr("Company 1")
	b.Address.City = "York"
	for _, c := range []models.Company{a, b} {
		_, err := s.store.Create(s.ctx, c)
		s.Require().NoError(err)
	}

	s.Run("name exists case insensitively except for own org", func() {
		ok, err := s.store.ExistsByNameForOrg(s.ctx, "ACME", "")
		s.Require().NoError(err)
		s.True(ok)

		ok, err = s.store.ExistsByNameForOrg(s.ctx, "acme", "ZC1")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("address exists case insensitively", func() {
		ok, err := s.store.ExistsByAddress(s.ctx, models.Address{Line1: "1 HIGH ST", City: "york", PostCode: "ls1", CountryCode: "gb"})
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("local name exact and prefix", func() {
		exact, err := s.store.FindByLocalName(s.ctx, "Company")
		s.Require().NoError(err)
		s.Len(exact, 1)

		prefix, err := s.store.FindByLocalNameStartingWith(s.ctx, "Company")
		s.Require().NoError(err)
		s.Len(prefix, 2)
	})

	s.Run("active auditors", func() {
		codes, err := s.store.FindActiveBySubscriptionType(s.ctx, "ST004")
		s.Require().NoError(err)
		s.Equal([]string{"ZC1"}, codes)
	})

	s.Run("get many skips unknown codes", func() {
		got, err := s.store.GetMany(s.ctx, []string{"ZC2", "ZC9", "ZC2"})
		s.Require().NoError(err)
		s.Len(got, 1)
	})

	s.Run("stream all visits in code order", func() {
		var codes []string
		err := s.store.StreamAll(s.ctx, func(c models.Company) error {
			codes = append(codes, c.Code)
			return nil
		})
		s.Require().NoError(err)
		s.Equal([]string{"ZC1", "ZC2"}, codes)
	})
}

func (s *InMemorySuite) TestEscapeLike() {
	s.Equal(`50\% \_off\\`, EscapeLike(`50% _off\`))
}
