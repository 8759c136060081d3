package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"orgprofile/internal/company/classification"
	"orgprofile/internal/company/hierarchy"
	"orgprofile/internal/company/metrics"
	"orgprofile/internal/company/models"
	"orgprofile/internal/company/notify"
	"orgprofile/internal/company/service"
	"orgprofile/internal/company/store/legacy"
	"orgprofile/internal/company/store/primary"
	storesub "orgprofile/internal/company/store/subscription"
	"orgprofile/internal/company/store/subsidiary"
	"orgprofile/internal/company/subscription"
	"orgprofile/internal/features"
	jwttoken "orgprofile/internal/jwt_token"
	"orgprofile/internal/platform/middleware"
)

type HandlerSuite struct {
	suite.Suite
	router   http.Handler
	jwt      *jwttoken.JWTService
	recorder *notify.Recorder
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.recorder = notify.NewRecorder()
	subs := subscription.New(storesub.NewLegacyInMemory(), storesub.NewCurrentInMemory(), features.NewStatic())
	companies := service.New(primary.NewInMemory(), legacy.NewInMemory(), subs, s.recorder,
		service.WithLogger(logger),
		service.WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	tree, err := classification.Parse([]byte(`[
		{"code":"A","name":"Agriculture"},
		{"code":"A1","name":"Crops","parentCode":"A"}
	]`))
	s.Require().NoError(err)

	h := New(companies, hierarchy.New(subsidiary.NewInMemory(), companies), subs, tree, logger)
	s.jwt = jwttoken.NewJWTService("test-key", "orgprofile")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(s.jwt), logger))
		h.Register(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, jwttoken.RoleService, jwttoken.RoleAdmin))
			h.RegisterService(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, jwttoken.RoleAdmin))
			h.RegisterAdmin(r)
		})
	})
	s.router = r
}

func (s *HandlerSuite) token(orgCode string, roles ...string) string {
	tok, err := s.jwt.IssueToken("subject", orgCode, roles, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func company(name string) models.Company {
	return models.Company{
		Name:      name,
		Telephone: "+33 1 44 55 66 77",
		Email:     "contact@example.com",
		Address: models.Address{
			Line1:       "1 Rue de Rivoli",
			City:        "Paris",
			PostCode:    "75001",
			CountryCode: "FR",
		},
	}
}

func (s *HandlerSuite) TestRequiresToken() {
	rec := s.do(http.MethodGet, "/companies/ZC1", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestCreateAndGet() {
	owner := s.token("ZC1")

	rec := s.do(http.MethodPost, "/companies/ZC1", owner, company("Acme"))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/companies/ZC1", owner, company("Acme"))
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/companies/ZC1", owner, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var got models.Company
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal("Acme", got.Name)
	s.True(got.LastWrittenByPrimary)

	s.NotEmpty(s.recorder.Events())
}

func (s *HandlerSuite) TestOtherOrganisationCannotWrite() {
	rec := s.do(http.MethodPost, "/companies/ZC1", s.token("ZC2"), company("Acme"))
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/companies/ZC1", s.token("", jwttoken.RoleAdmin), company("Acme"))
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *HandlerSuite) TestInvalidCompanyIsRejected() {
	c := company("Acme")
	c.Email = "not-an-email"
	rec := s.do(http.MethodPut, "/companies/ZC1", s.token("ZC1"), c)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	s.Equal("validation_error", body.Error)
	s.NotEmpty(body.Fields)
}

func (s *HandlerSuite) TestUnknownCompanyIsNotFound() {
	rec := s.do(http.MethodGet, "/companies/ZC404", s.token("ZC1"), nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/companies/ZC404/profile-status", s.token("ZC1"), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestExistenceChecks() {
	admin := s.token("", jwttoken.RoleAdmin)
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, "/companies/ZC1", admin, company("Acme")).Code)

	var out existsResponse
	rec := s.do(http.MethodGet, "/companies/exists/ZC1", admin, nil)
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	s.True(out.Exists)

	rec = s.do(http.MethodGet, "/companies/exists/name/ACME?exclude=ZC1", admin, nil)
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	s.False(out.Exists)

	rec = s.do(http.MethodGet, "/companies/address/exists?line1=1+rue+de+rivoli&city=paris&country=FR&postcode=75001", admin, nil)
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	s.True(out.Exists)

	rec = s.do(http.MethodGet, "/companies/address/exists?city=paris", admin, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestSubsidiaries() {
	admin := s.token("", jwttoken.RoleAdmin)
	for _, code := range []string{"ZC1", "ZC2"} {
		s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, "/companies/"+code, admin, company("Co "+code)).Code)
	}

	rel := RelationRequest{ParentOrgCode: "ZC1", ChildOrgCode: "ZC2"}
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/subsidiary", s.token("ZC1"), rel).Code)
	s.Require().Equal(http.StatusNoContent, s.do(http.MethodPost, "/subsidiary", s.token("", jwttoken.RoleService), rel).Code)

	rec := s.do(http.MethodGet, "/companies/ZC1/subsidiaries", admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var subs []models.Subsidiary
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&subs))
	s.Equal([]models.Subsidiary{{Code: "ZC2", Name: "Co ZC2"}}, subs)

	rec = s.do(http.MethodGet, "/companies/ZC2/subsidiaries/tree", admin, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestSummariesValidation() {
	admin := s.token("", jwttoken.RoleAdmin)
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, "/companies/ZC1", admin, company("Acme")).Code)

	body := CodesRequest{Codes: []string{"ZC1", "ZC9"}}
	rec := s.do(http.MethodPost, "/company-summaries", admin, body)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/company-summaries?validation=false", admin, body)
	s.Require().Equal(http.StatusOK, rec.Code)
	var out map[string]models.CompanySummary
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	s.Len(out, 1)
	s.Equal("FR", *out["ZC1"].CountryCode)
}

func (s *HandlerSuite) TestSearchRequiresTerm() {
	rec := s.do(http.MethodGet, "/companies/search", s.token("ZC1"), nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestClassificationDepth() {
	tok := s.token("ZC1")
	rec := s.do(http.MethodGet, "/industry-classifications?depth=0", tok, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var nodes []classification.Node
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&nodes))
	s.Require().Len(nodes, 1)
	s.Empty(nodes[0].Children)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/industry-classifications?depth=x", tok, nil).Code)
}

func (s *HandlerSuite) TestReseedIsAdminOnly() {
	admin := s.token("", jwttoken.RoleAdmin)
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, "/companies/ZC1", admin, company("Acme")).Code)

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/admin/reseed", s.token("", jwttoken.RoleService), nil).Code)

	rec := s.do(http.MethodPost, "/admin/reseed", admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var out reseedResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	s.Equal(int64(1), out.Published)
}

func (s *HandlerSuite) TestSubscriptionsAreServiceOnly() {
	sub := models.Subscription{OrgCode: "ZC1", NrOfSites: models.Ptr(3)}
	s.Equal(http.StatusForbidden, s.do(http.MethodPut, "/subscriptions", s.token("ZC1"), sub).Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodPut, "/subscriptions", s.token("", jwttoken.RoleService), sub).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/subscriptions", s.token("", jwttoken.RoleService), models.Subscription{}).Code)
}
