//go:build integration

package primary_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"orgprofile/internal/company/models"
	"orgprofile/internal/company/store/primary"
	"orgprofile/pkg/platform/sentinel"
	"orgprofile/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *primary.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = primary.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "company"))
}

func testCompany(code, name string) models.Company {
	return models.Company{
		Code:             code,
		Name:             name,
		Telephone:        "+44 113 000",
		Email:            "info@" + code + ".example",
		LocalName:        models.Ptr(name + " Local"),
		VATNumber:        models.Ptr("GB123456789"),
		Address:          models.Address{Line1: "1 High St", City: "Leeds", PostCode: "LS1", CountryCode: "GB"},
		BillingAddress:   &models.Address{Line1: "PO Box 1", City: "Lyon", PostCode: "69001", CountryCode: "FR"},
		SubscriptionType: models.Ptr("ST004"),
		MembershipStatus: models.Ptr(models.MembershipActive),
		CompanySize:      models.Ptr(models.CompanySizeSmall),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	created, err := s.store.Create(s.ctx, testCompany("ZC1", "Acme"))
	s.Require().NoError(err)
	s.NotNil(created.CreatedAt)

	got, err := s.store.Get(s.ctx, "ZC1")
	s.Require().NoError(err)
	s.Equal("Acme", got.Name)
	s.Equal("Acme Local", *got.LocalName)
	s.Equal("Lyon", got.BillingAddress.City)
	s.Equal(models.CompanySizeSmall, *got.CompanySize)
	s.Equal(models.MembershipActive, *got.MembershipStatus)
	s.WithinDuration(*created.CreatedAt, *got.CreatedAt, time.Millisecond)
	s.Nil(got.UpdatedAt)

	_, err = s.store.Create(s.ctx, testCompany("ZC1", "Again"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.Get(s.ctx, "ZC404")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCreateOrUpdateUnionsStoredFields() {
	_, err := s.store.CreateOrUpdate(s.ctx, testCompany("ZC1", "Acme"))
	s.Require().NoError(err)

	updated, err := s.store.CreateOrUpdate(s.ctx, models.Company{Code: "ZC1", Name: "Acme Two", Address: models.Address{City: "York"}})
	s.Require().NoError(err)
	s.NotNil(updated.UpdatedAt)

	got, err := s.store.Get(s.ctx, "ZC1")
	s.Require().NoError(err)
	s.Equal("Acme Two", got.Name)
	s.Equal("York", got.Address.City)
	s.Equal("1 High St", got.Address.Line1)
	s.Equal("GB123456789", *got.VATNumber)
	s.NotNil(got.UpdatedAt)
}

func (s *PostgresStoreSuite) TestConcurrentUpsertsKeepEveryField() {
	_, err := s.store.Create(s.ctx, testCompany("ZC1", "Acme"))
	s.Require().NoError(err)

	var wg sync.WaitGroup
	patches := []models.Company{
		{Code: "ZC1", Telephone: "+44 999"},
		{Code: "ZC1", Email: "new@acme.example"},
		{Code: "ZC1", CompanySize: models.Ptr(models.CompanySizeLarge)},
	}
	for _, p := range patches {
		wg.Add(1)
		go func(p models.Company) {
			defer wg.Done()
			_, err := s.store.CreateOrUpdate(s.ctx, p)
			s.NoError(err)
		}(p)
	}
	wg.Wait()

	got, err := s.store.Get(s.ctx, "ZC1")
	s.Require().NoError(err)
	s.Equal("+44 999", got.Telephone)
	s.Equal("new@acme.example", got.Email)
	s.Equal(models.CompanySizeLarge, *got.CompanySize)
}

func (s *PostgresStoreSuite) TestConcurrentUpsertsOfNewCode() {
	var wg sync.WaitGroup
	patches := []models.Company{
		testCompany("ZC7", "Acme"),
		{Code: "ZC7", Address: models.Address{Line2: "Floor 2"}},
		{Code: "ZC7", BusinessLicenseNumber: models.Ptr("BL-7")},
		{Code: "ZC7", PrimaryClassificationCode: models.Ptr("C1")},
	}
	for _, p := range patches {
		wg.Add(1)
		go func(p models.Company) {
			defer wg.Done()
			_, err := s.store.CreateOrUpdate(s.ctx, p)
			s.NoError(err)
		}(p)
	}
	wg.Wait()

	got, err := s.store.Get(s.ctx, "ZC7")
	s.Require().NoError(err)
	s.Equal("Acme", got.Name)
	s.Equal("Floor 2", got.Address.Line2)
	s.Require().NotNil(got.BusinessLicenseNumber)
	s.Equal("BL-7", *got.BusinessLicenseNumber)
	s.Require().NotNil(got.PrimaryClassificationCode)
	s.Equal("C1", *got.PrimaryClassificationCode)
}

func (s *PostgresStoreSuite) TestAddressLinesSurviveWrites() {
	c := testCompany("ZC8", "Acme")
	c.Address.Line3 = "Unit 4"
	c.Address.Line4 = "Block B"
	c.BillingAddress.Line3 = "Accounts"
	_, err := s.store.CreateOrUpdate(s.ctx, c)
	s.Require().NoError(err)

	_, err = s.store.CreateOrUpdate(s.ctx, models.Company{Code: "ZC8", Name: "Acme Renamed"})
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, "ZC8")
	s.Require().NoError(err)
	s.Equal("Unit 4", got.Address.Line3)
	s.Equal("Block B", got.Address.Line4)
	s.Require().NotNil(got.BillingAddress)
	s.Equal("Accounts", got.BillingAddress.Line3)
}

func (s *PostgresStoreSuite) TestQueries() {
	for _, c := range []models.Company{testCompany("ZC1", "Company"), testCompany("ZC2", "Company 1"), testCompany("ZC3", "Other")} {
		_, err := s.store.Create(s.ctx, c)
		s.Require().NoError(err)
	}

	s.Run("get many", func() {
		got, err := s.store.GetMany(s.ctx, []string{"ZC1", "ZC3", "ZC9"})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("exists checks", func() {
		ok, err := s.store.ExistsByCode(s.ctx, "ZC2")
		s.Require().NoError(err)
		s.True(ok)

		ok, err = s.store.ExistsByNameForOrg(s.ctx, "company", "ZC1")
		s.Require().NoError(err)
		s.False(ok)

		ok, err = s.store.ExistsByAddress(s.ctx, models.Address{Line1: "1 HIGH ST", City: "leeds", PostCode: "ls1", CountryCode: "gb"})
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("local name search escapes wildcards", func() {
		exact, err := s.store.FindByLocalName(s.ctx, "Company Local")
		s.Require().NoError(err)
		s.Len(exact, 1)

		prefix, err := s.store.FindByLocalNameStartingWith(s.ctx, "Company")
		s.Require().NoError(err)
		s.Len(prefix, 2)

		none, err := s.store.FindByLocalNameStartingWith(s.ctx, "%")
		s.Require().NoError(err)
		s.Empty(none)
	})

	s.Run("active auditors", func() {
		codes, err := s.store.FindActiveBySubscriptionType(s.ctx, "ST004")
		s.Require().NoError(err)
		s.Equal([]string{"ZC1", "ZC2", "ZC3"}, codes)
	})

	s.Run("stream all", func() {
		count := 0
		s.Require().NoError(s.store.StreamAll(s.ctx, func(models.Company) error {
			count++
			return nil
		}))
		s.Equal(3, count)
	})
}
