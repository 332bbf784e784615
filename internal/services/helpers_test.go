package services

import (
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

const foreignHeader = "기준일ID,시간대구분,집계구코드,총생활인구수,중국인체류인구수,중국외외국인체류인구수"

func foreignFile(name string, rows ...string) InputFile {
	return InputFile{Name: name, Content: []byte(foreignHeader + "\n" + strings.Join(rows, "\n") + "\n")}
}

func testDeps(t *testing.T) (*logging.StructuredLogger, *metrics.Collector) {
	t.Helper()
	logger := logging.NewStructuredLogger("test", "0.0.1", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger, metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

func newMergeService(t *testing.T, opts MergeOptions) (*MergeService, *metrics.Collector) {
	t.Helper()
	logger, m := testDeps(t)
	svc, err := NewMergeService(opts, logger, m)
	if err != nil {
		t.Fatalf("NewMergeService() error = %v", err)
	}
	return svc, m
}
