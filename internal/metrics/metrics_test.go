package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGetSingleton(t *testing.T) {
	a := Get()
	b := Get()
	if a != b {
		t.Fatal("Get must return the same registry")
	}
}

func TestCounters(t *testing.T) {
	r := Get()

	before := testutil.ToFloat64(r.GuestOperations.WithLabelValues("authorize", "success"))
	r.GuestOperations.WithLabelValues("authorize", "success").Inc()
	after := testutil.ToFloat64(r.GuestOperations.WithLabelValues("authorize", "success"))
	if after != before+1 {
		t.Errorf("GuestOperations counter did not increment: before=%v after=%v", before, after)
	}

	r.APIRequests.WithLabelValues("GET", "/api/sites", "200").Inc()
	if testutil.ToFloat64(r.APIRequests.WithLabelValues("GET", "/api/sites", "200")) < 1 {
		t.Error("APIRequests counter did not increment")
	}

	r.Uptime.Set(42)
	if testutil.ToFloat64(r.Uptime) != 42 {
		t.Error("Uptime gauge did not set")
	}
}
