package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordsRequestsAndSubmissions(t *testing.T) {
	c := NewCollector()

	c.RecordRequest("/login", "POST", "200", 0.05)
	count := testutil.ToFloat64(c.requestTotal.WithLabelValues("/login", "POST", "200"))
	if count < 1 {
		t.Errorf("expected request count >= 1, got %f", count)
	}

	c.RecordSubmission("passed", 12.5)
	subCount := testutil.ToFloat64(c.submissionsTotal.WithLabelValues("passed"))
	if subCount < 1 {
		t.Errorf("expected submission count >= 1, got %f", subCount)
	}

	c.SetQueueDepth(3)
	if got := testutil.ToFloat64(c.queueDepth); got != 3 {
		t.Errorf("expected queue depth 3, got %f", got)
	}

	c.SetPermitsAvailable(7)
	if got := testutil.ToFloat64(c.permitsAvailable); got != 7 {
		t.Errorf("expected permits available 7, got %f", got)
	}
}

func TestCollector_IsASingleton(t *testing.T) {
	if NewCollector() != NewCollector() {
		t.Fatal("expected NewCollector to return the same instance across calls")
	}
}
