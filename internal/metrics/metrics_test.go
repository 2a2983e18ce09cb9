package metrics

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/razor_imu/internal/razor"
)

func TestResultOf(t *testing.T) {
	assert.Equal(t, ResultOK, ResultOf(nil))
	assert.Equal(t, ResultTimeout, ResultOf(fmt.Errorf("tick: %w", razor.ErrTimeout)))
	assert.Equal(t, ResultClosed, ResultOf(razor.ErrChannelClosed))
	assert.Equal(t, ResultParse, ResultOf(&razor.ParseError{Line: "#X=1", Err: razor.ErrUnknownAxis}))
	assert.Equal(t, ResultOther, ResultOf(razor.ErrNoChannel))
}

func TestObservePoll(t *testing.T) {
	before := testutil.ToFloat64(Polls.WithLabelValues(ResultTimeout))
	ObservePoll(razor.ErrTimeout, razor.Vector{})
	assert.Equal(t, before+1, testutil.ToFloat64(Polls.WithLabelValues(ResultTimeout)))

	ObservePoll(nil, razor.Vector{10, 20, 350})
	assert.Equal(t, 350.0, testutil.ToFloat64(Angle.WithLabelValues("yaw")))
	assert.Equal(t, 10.0, testutil.ToFloat64(Angle.WithLabelValues("pitch")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "razor_polls_total"))
}
