package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest(http.MethodGet, "/companies/{code}", http.StatusOK, time.Now())
	m.ObserveRequest(http.MethodGet, "/companies/{code}", http.StatusNotFound, time.Now())

	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}
