// Package hierarchy manages parent to subsidiary links between organisations.
package hierarchy

import (
	"context"
	"log/slog"
	"sort"

	"orgprofile/internal/company/models"
	dErrors "orgprofile/pkg/domain-errors"
)

type EdgeStore interface {
	Create(ctx context.Context, parent, child string) error
	Delete(ctx context.Context, parent, child string) error
	Exists(ctx context.Context, parent, child string) (bool, error)
	ChildrenOf(ctx context.Context, parent string) ([]string, error)
	Descendants(ctx context.Context, parent string) ([]models.SubsidiaryRelation, error)
}

// Reconciler resolves codes to their current records, dropping unknown codes.
type Reconciler interface {
	ReconcileMany(ctx context.Context, codes []string, strict bool) ([]models.Company, error)
}

type Service struct {
	edges     EdgeStore
	companies Reconciler
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(edges EdgeStore, companies Reconciler, opts ...Option) *Service {
	s := &Service{edges: edges, companies: companies, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validPair(parent, child string) error {
	if parent == "" || child == "" {
		return dErrors.New(dErrors.CodeBadRequest, "parent and child organisation codes are required")
	}
	if parent == child {
		return dErrors.New(dErrors.CodeBadRequest, "an organisation cannot be its own subsidiary")
	}
	return nil
}

// CreateRelation links child under parent. Linking an existing pair is a no-op.
func (s *Service) CreateRelation(ctx context.Context, parent, child string) error {
	if err := validPair(parent, child); err != nil {
		return err
	}
	exists, err := s.edges.Exists(ctx, parent, child)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check subsidiary")
	}
	if exists {
		return nil
	}
	if err := s.edges.Create(ctx, parent, child); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create subsidiary")
	}
	s.logger.InfoContext(ctx, "subsidiary linked", "parent_org_code", parent, "child_org_code", child)
	return nil
}

// DeleteRelation removes the link if present.
func (s *Service) DeleteRelation(ctx context.Context, parent, child string) error {
	if err := validPair(parent, child); err != nil {
		return err
	}
	if err := s.edges.Delete(ctx, parent, child); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete subsidiary")
	}
	s.logger.InfoContext(ctx, "subsidiary unlinked", "parent_org_code", parent, "child_org_code", child)
	return nil
}

func (s *Service) DirectChildren(ctx context.Context, parent string) ([]string, error) {
	children, err := s.edges.ChildrenOf(ctx, parent)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list subsidiaries")
	}
	return children, nil
}

// DescendantClosure returns every edge reachable from parent. It is empty for a leaf.
func (s *Service) DescendantClosure(ctx context.Context, parent string) ([]models.SubsidiaryRelation, error) {
	edges, err := s.edges.Descendants(ctx, parent)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve subsidiary tree")
	}
	return edges, nil
}

// Tree is DescendantClosure that reports a leaf as not found.
func (s *Service) Tree(ctx context.Context, parent string) ([]models.SubsidiaryRelation, error) {
	edges, err := s.DescendantClosure(ctx, parent)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, dErrors.NotFound(parent)
	}
	return edges, nil
}

// SubsidiariesWithNames names the direct children of parent. Children no store knows are omitted.
func (s *Service) SubsidiariesWithNames(ctx context.Context, parent string) ([]models.Subsidiary, error) {
	children, err := s.DirectChildren(ctx, parent)
	if err != nil || len(children) == 0 {
		return []models.Subsidiary{}, err
	}
	companies, err := s.companies.ReconcileMany(ctx, children, false)
	if err != nil {
		return nil, err
	}
	out := make([]models.Subsidiary, 0, len(companies))
	for _, c := range companies {
		out = append(out, models.Subsidiary{Code: c.Code, Name: c.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
