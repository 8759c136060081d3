package legacypush

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Pusher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgprofile/internal/company/models"
)

func company() models.Company {
	active := models.MembershipActive
	return models.Company{
		Code:             "ZC1",
		Name:             "Acme",
		Address:          models.Address{Line1: "1 Road", City: "Paris", CountryCode: "FR", PostCode: "75001"},
		Telephone:        "+33 1 23",
		Email:            "ops@acme.test",
		MembershipStatus: &active,
		SubscriptionType: models.Ptr("ST002"),
	}
}

func TestPushSendsAdapterRequest(t *testing.T) {
	var got Request
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", time.Second)
	require.NoError(t, c.Push(context.Background(), "ZC1", company()))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/companies/ZC1", path)
	assert.Equal(t, "Acme", got.EnglishName)
	assert.Equal(t, "OPTED_OUT", got.EnrollStatus)
	assert.Equal(t, "ACTIVE", got.MembershipStatus)
	assert.Equal(t, "ST002", got.SubscriptionType)
}

func TestPushRequiresMembershipFields(t *testing.T) {
	c := company()
	c.SubscriptionType = nil
	err := NewHTTPClient("http://unused", time.Second).Push(context.Background(), "ZC1", c)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestRepeatedFailuresOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	for i := 0; i < 5; i++ {
		assert.Error(t, c.Push(context.Background(), "ZC1", company()))
	}
	assert.False(t, c.Healthy())
}
