package repository

// Metrics abstracts the counters a reconciliation run publishes. The
// Prometheus recorder in pkg/metrics is the production implementation.
type Metrics interface {
	RecordRun(kind string, seconds float64)
	RecordMatches(kind string, n int)
	RecordException(exceptionType string)
	RecordCluster(method string)
	RecordSLABreach()
	RecordEscalation()
	RecordMatchRate(pct float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordRun(string, float64) {}
func (NopMetrics) RecordMatches(string, int) {}
func (NopMetrics) RecordException(string)    {}
func (NopMetrics) RecordCluster(string)      {}
func (NopMetrics) RecordSLABreach()          {}
func (NopMetrics) RecordEscalation()         {}
func (NopMetrics) RecordMatchRate(float64)   {}
