package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "error", Status(errors.New("boom")))
}

func TestRetriesTotal_Increments(t *testing.T) {
	before := testutil.ToFloat64(RetriesTotal.WithLabelValues("test_op"))
	RetriesTotal.WithLabelValues("test_op").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RetriesTotal.WithLabelValues("test_op")))
}
