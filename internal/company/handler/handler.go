// Package handler exposes the company profile operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"orgprofile/internal/company/classification"
	"orgprofile/internal/company/models"
	jwttoken "orgprofile/internal/jwt_token"
	dErrors "orgprofile/pkg/domain-errors"
	"orgprofile/pkg/platform/httputil"
	"orgprofile/pkg/requestcontext"
)

// CompanyService is the reconciled company API.
type CompanyService interface {
	Get(ctx context.Context, code string) (models.Company, error)
	ReconcileMany(ctx context.Context, codes []string, strict bool) ([]models.Company, error)
	Summaries(ctx context.Context, codes []string, strict bool) (map[string]models.CompanySummary, error)
	Create(ctx context.Context, code string, c models.Company) (models.Company, error)
	Update(ctx context.Context, code string, c models.Company) (models.Company, error)
	UpdateSubscription(ctx context.Context, code string, status models.MembershipStatus, tier models.SubscriptionTier) (models.Company, error)
	UpdateCompanySize(ctx context.Context, code string, size models.CompanySize) (models.Company, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ExistsByNameForOrg(ctx context.Context, name, excludeCode string) (bool, error)
	ExistsByAddress(ctx context.Context, a models.Address) (bool, error)
	Search(ctx context.Context, term string) ([]models.SearchResult, error)
	ProfileStatus(ctx context.Context, code string) (models.ProfileStatus, error)
	GetWithSubscription(ctx context.Context, code string) (models.Company, *models.Subscription, error)
	MembershipSummary(ctx context.Context, code string) (models.MembershipSummary, error)
	AuditCompanies(ctx context.Context) ([]string, error)
	Reseed(ctx context.Context) (int64, error)
}

// HierarchyService resolves subsidiary relations.
type HierarchyService interface {
	CreateRelation(ctx context.Context, parent, child string) error
	DeleteRelation(ctx context.Context, parent, child string) error
	Tree(ctx context.Context, parent string) ([]models.SubsidiaryRelation, error)
	SubsidiariesWithNames(ctx context.Context, parent string) ([]models.Subsidiary, error)
}

// SubscriptionService records subscriptions pushed by the billing side.
type SubscriptionService interface {
	CreateOrUpdate(ctx context.Context, sub models.Subscription) error
	CreateNew(ctx context.Context, sub models.Subscription) error
}

// Classifications serves the industry classification tree.
type Classifications interface {
	Classifications(maxDepth int) []classification.Node
}

// Handler wires the company endpoints to their services.
type Handler struct {
	companies       CompanyService
	hierarchy       HierarchyService
	subscriptions   SubscriptionService
	classifications Classifications
	logger          *slog.Logger
}

// New constructs a company handler with its dependencies.
func New(companies CompanyService, hierarchy HierarchyService, subscriptions SubscriptionService, classifications Classifications, logger *slog.Logger) *Handler {
	return &Handler{
		companies:       companies,
		hierarchy:       hierarchy,
		subscriptions:   subscriptions,
		classifications: classifications,
		logger:          logger,
	}
}

// Register mounts the company endpoints. The router must already authenticate callers.
func (h *Handler) Register(r chi.Router) {
	r.Get("/companies/exists/{code}", h.HandleExistsByCode)
	r.Get("/companies/exists/name/{name}", h.HandleExistsByName)
	r.Get("/companies/address/exists", h.HandleExistsByAddress)
	r.Get("/companies/search", h.HandleSearch)

	r.Get("/companies/{code}", h.HandleGet)
	r.Post("/companies/{code}", h.HandleCreate)
	r.Put("/companies/{code}", h.HandleUpdate)
	r.Get("/companies/{code}/with-subscription", h.HandleGetWithSubscription)
	r.Put("/companies/{code}/subscription", h.HandleUpdateSubscription)
	r.Put("/companies/{code}/size", h.HandleUpdateCompanySize)
	r.Get("/companies/{code}/profile-status", h.HandleProfileStatus)
	r.Get("/companies/{code}/summary", h.HandleMembershipSummary)
	r.Get("/companies/{code}/subsidiaries", h.HandleSubsidiaries)
	r.Get("/companies/{code}/subsidiaries/tree", h.HandleSubsidiaryTree)

	r.Post("/all-companies", h.HandleGetMany)
	r.Post("/company-summaries", h.HandleSummaries)
	r.Get("/audit-companies", h.HandleAuditCompanies)
	r.Get("/industry-classifications", h.HandleClassifications)
}

// RegisterService mounts the endpoints reserved for trusted services.
func (h *Handler) RegisterService(r chi.Router) {
	r.Post("/subsidiary", h.HandleCreateRelation)
	r.Delete("/subsidiary", h.HandleDeleteRelation)
	r.Put("/subscriptions", h.HandlePutSubscription)
	r.Post("/subscriptions", h.HandleCreateSubscription)
}

// RegisterAdmin mounts operator endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/reseed", h.HandleReseed)
}

// authorizeOrg allows a caller to modify its own organisation. Admins and services may modify any.
func authorizeOrg(ctx context.Context, code string) error {
	caller := requestcontext.Principal(ctx)
	if caller.Has(jwttoken.RoleAdmin) || caller.Has(jwttoken.RoleService) {
		return nil
	}
	if caller.OrgCode != "" && caller.OrgCode == code {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller may not modify company "+code)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	args := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}

// HandleGet handles GET /companies/{code}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	c, err := h.companies.Get(ctx, code)
	if err != nil {
		h.fail(ctx, w, "get company failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleGetMany handles POST /all-companies. Unknown codes are skipped.
func (h *Handler) HandleGetMany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CodesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cs, err := h.companies.ReconcileMany(ctx, req.Codes, false)
	if err != nil {
		h.fail(ctx, w, "get companies failed", err, "count", len(req.Codes))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cs)
}

// HandleCreate handles POST /companies/{code}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	code := chi.URLParam(r, "code")

	if err := authorizeOrg(ctx, code); err != nil {
		h.fail(ctx, w, "create company rejected", err, "code", code)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompanyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.companies.Create(ctx, code, req.Company)
	if err != nil {
		h.fail(ctx, w, "create company failed", err, "code", code)
		return
	}
	h.logger.InfoContext(ctx, "company created",
		"request_id", requestID,
		"code", code,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, c)
}

// HandleUpdate handles PUT /companies/{code}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	code := chi.URLParam(r, "code")

	if err := authorizeOrg(ctx, code); err != nil {
		h.fail(ctx, w, "update company rejected", err, "code", code)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompanyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.companies.Update(ctx, code, req.Company)
	if err != nil {
		h.fail(ctx, w, "update company failed", err, "code", code)
		return
	}
	h.logger.InfoContext(ctx, "company updated",
		"request_id", requestID,
		"code", code,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleUpdateSubscription handles PUT /companies/{code}/subscription.
func (h *Handler) HandleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	code := chi.URLParam(r, "code")

	if err := authorizeOrg(ctx, code); err != nil {
		h.fail(ctx, w, "update subscription rejected", err, "code", code)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubscriptionChangeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.companies.UpdateSubscription(ctx, code, req.status, req.tier)
	if err != nil {
		h.fail(ctx, w, "update subscription failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleUpdateCompanySize handles PUT /companies/{code}/size.
func (h *Handler) HandleUpdateCompanySize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	code := chi.URLParam(r, "code")

	if err := authorizeOrg(ctx, code); err != nil {
		h.fail(ctx, w, "update company size rejected", err, "code", code)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompanySizeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.companies.UpdateCompanySize(ctx, code, req.size)
	if err != nil {
		h.fail(ctx, w, "update company size failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleGetWithSubscription handles GET /companies/{code}/with-subscription.
func (h *Handler) HandleGetWithSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	c, sub, err := h.companies.GetWithSubscription(ctx, code)
	if err != nil {
		h.fail(ctx, w, "get company with subscription failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, withSubscriptionResponse{Company: c, Subscription: sub})
}

// HandleProfileStatus handles GET /companies/{code}/profile-status.
func (h *Handler) HandleProfileStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	status, err := h.companies.ProfileStatus(ctx, code)
	if err != nil {
		h.fail(ctx, w, "profile status failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileStatusResponse{Code: code, Status: status})
}

// HandleMembershipSummary handles GET /companies/{code}/summary.
func (h *Handler) HandleMembershipSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	summary, err := h.companies.MembershipSummary(ctx, code)
	if err != nil {
		h.fail(ctx, w, "membership summary failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleSummaries handles POST /company-summaries. Strict unless validation=false.
func (h *Handler) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CodesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	strict := !strings.EqualFold(r.URL.Query().Get("validation"), "false")
	out, err := h.companies.Summaries(ctx, req.Codes, strict)
	if err != nil {
		h.fail(ctx, w, "company summaries failed", err, "count", len(req.Codes))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleExistsByCode handles GET /companies/exists/{code}.
func (h *Handler) HandleExistsByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	ok, err := h.companies.ExistsByCode(ctx, code)
	if err != nil {
		h.fail(ctx, w, "exists by code failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, existsResponse{Exists: ok})
}

// HandleExistsByName handles GET /companies/exists/name/{name}?exclude={code}.
func (h *Handler) HandleExistsByName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}

	ok, err := h.companies.ExistsByNameForOrg(ctx, name, r.URL.Query().Get("exclude"))
	if err != nil {
		h.fail(ctx, w, "exists by name failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, existsResponse{Exists: ok})
}

// HandleExistsByAddress handles GET /companies/address/exists.
func (h *Handler) HandleExistsByAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	a := models.Address{
		Line1:       strings.TrimSpace(q.Get("line1")),
		City:        strings.TrimSpace(q.Get("city")),
		PostCode:    strings.TrimSpace(q.Get("postcode")),
		CountryCode: strings.TrimSpace(q.Get("country")),
	}
	if a.Line1 == "" || a.City == "" || a.CountryCode == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "line1, city and country are required"))
		return
	}

	ok, err := h.companies.ExistsByAddress(ctx, a)
	if err != nil {
		h.fail(ctx, w, "exists by address failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, existsResponse{Exists: ok})
}

// HandleSearch handles GET /companies/search?name={term}.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := strings.TrimSpace(r.URL.Query().Get("name"))
	if term == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}

	results, err := h.companies.Search(ctx, term)
	if err != nil {
		h.fail(ctx, w, "company search failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

// HandleAuditCompanies handles GET /audit-companies.
func (h *Handler) HandleAuditCompanies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	codes, err := h.companies.AuditCompanies(ctx)
	if err != nil {
		h.fail(ctx, w, "audit companies failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auditCompaniesResponse{Codes: codes})
}

// HandleSubsidiaries handles GET /companies/{code}/subsidiaries.
func (h *Handler) HandleSubsidiaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	subs, err := h.hierarchy.SubsidiariesWithNames(ctx, code)
	if err != nil {
		h.fail(ctx, w, "list subsidiaries failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subs)
}

// HandleSubsidiaryTree handles GET /companies/{code}/subsidiaries/tree.
func (h *Handler) HandleSubsidiaryTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	tree, err := h.hierarchy.Tree(ctx, code)
	if err != nil {
		h.fail(ctx, w, "subsidiary tree failed", err, "code", code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tree)
}

// HandleCreateRelation handles POST /subsidiary.
func (h *Handler) HandleCreateRelation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RelationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.hierarchy.CreateRelation(ctx, req.ParentOrgCode, req.ChildOrgCode); err != nil {
		h.fail(ctx, w, "create subsidiary failed", err, "parent", req.ParentOrgCode, "child", req.ChildOrgCode)
		return
	}
	h.logger.InfoContext(ctx, "subsidiary linked",
		"request_id", requestID,
		"parent", req.ParentOrgCode,
		"child", req.ChildOrgCode,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteRelation handles DELETE /subsidiary.
func (h *Handler) HandleDeleteRelation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RelationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.hierarchy.DeleteRelation(ctx, req.ParentOrgCode, req.ChildOrgCode); err != nil {
		h.fail(ctx, w, "delete subsidiary failed", err, "parent", req.ParentOrgCode, "child", req.ChildOrgCode)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePutSubscription handles PUT /subscriptions against the single-row store.
func (h *Handler) HandlePutSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubscriptionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.subscriptions.CreateOrUpdate(ctx, req.Subscription); err != nil {
		h.fail(ctx, w, "store subscription failed", err, "org_code", req.OrgCode)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateSubscription handles POST /subscriptions against the per-period store.
func (h *Handler) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubscriptionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.subscriptions.CreateNew(ctx, req.Subscription); err != nil {
		h.fail(ctx, w, "record subscription failed", err, "org_code", req.OrgCode)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClassifications handles GET /industry-classifications?depth={n}. No depth returns the whole tree.
func (h *Handler) HandleClassifications(w http.ResponseWriter, r *http.Request) {
	depth := -1
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "depth must be a non-negative integer"))
			return
		}
		depth = n
	}
	httputil.WriteJSON(w, http.StatusOK, h.classifications.Classifications(depth))
}

// HandleReseed handles POST /admin/reseed.
func (h *Handler) HandleReseed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	n, err := h.companies.Reseed(ctx)
	if err != nil {
		h.fail(ctx, w, "reseed failed", err)
		return
	}
	h.logger.InfoContext(ctx, "reseed completed",
		"request_id", requestID,
		"published", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, reseedResponse{Published: n})
}
