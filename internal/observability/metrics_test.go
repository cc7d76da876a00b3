package observability

import (
	"testing"
	"time"

	"github.com/danmuck/texlink/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordCall("process", "double", 12*time.Millisecond, true)
	RecordCall("engine", "compute", 3*time.Millisecond, false)
	RecordRemoteFailure("process", "compute")
}
