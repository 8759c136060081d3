package subscription

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
	legacy  *LegacyInMemory
	current *CurrentInMemory
	ctx     context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.legacy = NewLegacyInMemory()
	s.current = NewCurrentInMemory()
	s.ctx = context.Background()
}

func at(day int) *time.Time {
	t := time.Date(2030, time.January, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func (s *InMemorySuite) TestLegacyUpsertReplaces() {
	_, err := s.legacy.FindByOrgCode(s.ctx, "ZC1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.legacy.Upsert(s.ctx, models.Subscription{OrgCode: "ZC1", NrOfSites: models.Ptr(1)}))
	s.Require().NoError(s.legacy.Upsert(s.ctx, models.Subscription{OrgCode: "ZC1", NrOfSites: models.Ptr(4)}))

	got, err := s.legacy.FindByOrgCode(s.ctx, "ZC1")
	s.Require().NoError(err)
	s.Equal(4, *got.NrOfSites)
}

func (s *InMemorySuite) TestCurrentKeyedByEndDate() {
	s.Run("newer write replaces and keeps id", func() {
		s.SetupTest()
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1", EndDate: at(1), Timestamp: at(2), NrOfSites: models.Ptr(1)}))
		before, _ := s.current.FindByOrgCode(s.ctx, "ZC1")
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1", EndDate: at(1), Timestamp: at(3), NrOfSites: models.Ptr(2)}))

		got, err := s.current.FindByOrgCode(s.ctx, "ZC1")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(2, *got[0].NrOfSites)
		s.Equal(before[0].ID, got[0].ID)
	})

	s.Run("older or untimestamped write is ignored", func() {
		s.SetupTest()
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1", EndDate: at(1), Timestamp: at(5), NrOfSites: models.Ptr(1)}))
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1", EndDate: at(1), Timestamp: at(4), NrOfSites: models.Ptr(2)}))
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1", EndDate: at(1), NrOfSites: models.Ptr(3)}))

		got, err := s.current.FindByOrgCode(s.ctx, "ZC1")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(1, *got[0].NrOfSites)
	})

	s.Run("distinct end dates and nil end dates insert", func() {
		s.SetupTest()
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1", EndDate: at(1)}))
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1", EndDate: at(2)}))
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1"}))
		s.Require().NoError(s.current.CreateOrUpdate(s.ctx, models.Subscription{OrgCode: "ZC1"}))

		got, err := s.current.FindByOrgCode(s.ctx, "ZC1")
		s.Require().NoError(err)
		s.Len(got, 4)
	})
}

func (s *InMemorySuite) TestCurrentUnknownOrgIsEmpty() {
	got, err := s.current.FindByOrgCode(s.ctx, "ZC404")
	s.Require().NoError(err)
	s.Empty(got)
}
