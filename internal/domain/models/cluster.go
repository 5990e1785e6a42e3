package models

// ClusterMethod identifies which pass produced a cluster.
type ClusterMethod string

const (
	ClusterExact ClusterMethod = "exact_match"
	ClusterFuzzy ClusterMethod = "fuzzy_hash"
)

// ExceptionCluster groups exceptions believed to share a root cause.
// Cluster ids are content hashes, so identical inputs always yield
// identical clusters; assignment and SLA timers rely on that.
type ExceptionCluster struct {
	ID             string
	Key            string
	Method         ClusterMethod
	MemberIDs      []string // exception ids, input order preserved
	Representative string   // member with the highest severity score
	ProbableCause  string
	Severity       Severity

	// Distinct-value statistics across members, sorted.
	Accounts []string
	Products []string
	Types    []ExceptionType
}

// Size returns the member count.
func (c ExceptionCluster) Size() int { return len(c.MemberIDs) }
