package subsidiary

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"

	"orgprofile/internal/company/models"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemorySuite) link(edges ...[2]string) {
	for _, e := range edges {
		s.Require().NoError(s.store.Create(s.ctx, e[0], e[1]))
	}
}

func (s *InMemorySuite) TestDescendantClosure() {
	s.link([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"B", "D"}, [2]string{"D", "E"})

	got, err := s.store.Descendants(s.ctx, "A")
	s.Require().NoError(err)
	s.ElementsMatch([]models.SubsidiaryRelation{
		{ParentCode: "A", ChildCode: "B"},
		{ParentCode: "B", ChildCode: "C"},
		{ParentCode: "B", ChildCode: "D"},
		{ParentCode: "D", ChildCode: "E"},
	}, got)

	leaf, err := s.store.Descendants(s.ctx, "C")
	s.Require().NoError(err)
	s.Empty(leaf)
}

func (s *InMemorySuite) TestCycleTerminates() {
	s.link([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"})

	got, err := s.store.Descendants(s.ctx, "A")
	s.Require().NoError(err)
	s.Len(got, 3)
}

func (s *InMemorySuite) TestCreateIsIdempotent() {
	s.link([2]string{"A", "B"}, [2]string{"A", "B"})

	children, err := s.store.ChildrenOf(s.ctx, "A")
	s.Require().NoError(err)
	s.Equal([]string{"B"}, children)

	s.Require().NoError(s.store.Delete(s.ctx, "A", "B"))
	s.Require().NoError(s.store.Delete(s.ctx, "A", "B"))
	ok, err := s.store.Exists(s.ctx, "A", "B")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *InMemorySuite) TestDeepChainTerminates() {
	for i := 0; i < 5000; i++ {
		s.Require().NoError(s.store.Create(s.ctx, code(i), code(i+1)))
	}
	got, err := s.store.Descendants(s.ctx, code(0))
	s.Require().NoError(err)
	s.Len(got, 5000)
}

func code(i int) string {
	return "ZC" + strconv.Itoa(i)
}
