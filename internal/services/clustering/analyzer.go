package clustering

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/service"
	"TradeRecon/pkg/logger"
)

// Config carries the clustering knobs.
type Config struct {
	MinClusterSize int
	MaxClusters    int
	EnableExact    bool
	EnableFuzzy    bool
}

const (
	defaultMinClusterSize = 2
	defaultMaxClusters    = 100
)

var (
	notionalHigh   = decimal.NewFromInt(1_000_000)
	notionalMedium = decimal.NewFromInt(100_000)

	numericPattern = regexp.MustCompile(`\d+\.?\d*`)
)

// Analyzer groups exceptions that plausibly share a root cause. Two
// passes: an exact pass over a structured key, then a fuzzy feature-hash
// pass over whatever the exact pass left unclustered. Output is fully
// deterministic for a given input.
type Analyzer struct {
	cfg    Config
	causes service.CauseExtractor
	log    *logger.Logger
}

func NewAnalyzer(cfg Config, causes service.CauseExtractor, log *logger.Logger) *Analyzer {
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = defaultMinClusterSize
	}
	if cfg.MaxClusters <= 0 {
		cfg.MaxClusters = defaultMaxClusters
	}
	if causes == nil {
		causes = NewKeywordCauseExtractor()
	}
	return &Analyzer{cfg: cfg, causes: causes, log: log}
}

// Analyze clusters the given exceptions. Exceptions the exact pass claims
// are invisible to the fuzzy pass; singletons below MinClusterSize stay
// unclustered. Results are sorted by severity, then size, then id, and
// truncated to MaxClusters.
func (a *Analyzer) Analyze(exceptions []models.Exception) []models.ExceptionCluster {
	if len(exceptions) == 0 {
		return nil
	}

	causes := make([]string, len(exceptions))
	for i := range exceptions {
		causes[i] = a.causes.Extract(exceptions[i])
	}

	clustered := make([]bool, len(exceptions))
	var clusters []models.ExceptionCluster

	if a.cfg.EnableExact {
		clusters = append(clusters, a.pass(exceptions, causes, clustered, models.ClusterExact, a.exactKey)...)
	}
	if a.cfg.EnableFuzzy {
		clusters = append(clusters, a.pass(exceptions, causes, clustered, models.ClusterFuzzy, a.fuzzyKey)...)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Severity != clusters[j].Severity {
			return clusters[i].Severity.Priority() > clusters[j].Severity.Priority()
		}
		if clusters[i].Size() != clusters[j].Size() {
			return clusters[i].Size() > clusters[j].Size()
		}
		return clusters[i].ID < clusters[j].ID
	})

	if len(clusters) > a.cfg.MaxClusters {
		a.log.Warn("cluster count exceeds limit, truncating",
			logger.Int("clusters", len(clusters)),
			logger.Int("limit", a.cfg.MaxClusters))
		clusters = clusters[:a.cfg.MaxClusters]
	}

	a.log.Info("exception clustering complete",
		logger.Int("exceptions", len(exceptions)),
		logger.Int("clusters", len(clusters)))

	return clusters
}

// pass groups unclustered exceptions by keyFn and emits clusters meeting
// MinClusterSize, marking their members clustered.
func (a *Analyzer) pass(exceptions []models.Exception, causes []string, clustered []bool, method models.ClusterMethod, keyFn func(ex models.Exception, cause string) string) []models.ExceptionCluster {
	groups := map[string][]int{}
	for i := range exceptions {
		if clustered[i] {
			continue
		}
		key := keyFn(exceptions[i], causes[i])
		groups[key] = append(groups[key], i)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []models.ExceptionCluster
	for _, key := range keys {
		members := groups[key]
		if len(members) < a.cfg.MinClusterSize {
			continue
		}
		for _, i := range members {
			clustered[i] = true
		}
		out = append(out, a.build(exceptions, causes, members, method, key))
	}
	return out
}

func (a *Analyzer) exactKey(ex models.Exception, cause string) string {
	field := "none"
	for _, b := range allBreaks(ex) {
		if !b.Within {
			field = NormalizeField(b.Field)
			break
		}
	}
	return strings.Join([]string{
		string(ex.Type),
		field,
		ProductFamily(ex.Symbol),
		AccountFamily(ex.Account),
		cause,
	}, "|")
}

// fuzzyKey hashes a sorted feature set so that near-identical exceptions
// from different feeds land in the same bucket even when exact key parts
// differ.
func (a *Analyzer) fuzzyKey(ex models.Exception, cause string) string {
	features := []string{
		"type:" + string(ex.Type),
		"cause:" + cause,
		"product:" + ProductType(ex.Symbol),
		"account:" + AccountFamily(ex.Account),
	}
	if n := len(numericPattern.FindAllString(ex.Description, -1)); n > 0 {
		features = append(features, fmt.Sprintf("numerics:%d", n))
	}
	for _, term := range descriptiveTerms(ex.Description) {
		features = append(features, "term:"+term)
	}
	sort.Strings(features)
	sum := sha256.Sum256([]byte(strings.Join(features, "|")))
	return "fuzzy_" + hex.EncodeToString(sum[:])[:12]
}

// descriptiveTerms picks the first few meaningful words of a description,
// canonicalized against the term vocabulary.
func descriptiveTerms(description string) []string {
	const maxTerms = 5
	var terms []string
	for _, raw := range strings.Fields(strings.ToLower(description)) {
		word := strings.Trim(raw, ".,;:%()'\"")
		if len(word) <= 3 || numericPattern.MatchString(word) {
			continue
		}
		terms = append(terms, canonicalTerm(word))
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}

func (a *Analyzer) build(exceptions []models.Exception, causes []string, members []int, method models.ClusterMethod, key string) models.ExceptionCluster {
	memberIDs := make([]string, 0, len(members))
	accountSet := map[string]bool{}
	productSet := map[string]bool{}
	typeSet := map[models.ExceptionType]bool{}
	causeCount := map[string]int{}

	total := 0
	bestScore := -1
	representative := ""
	for _, i := range members {
		ex := exceptions[i]
		memberIDs = append(memberIDs, ex.ID)
		accountSet[ex.Account] = true
		productSet[ex.Symbol] = true
		typeSet[ex.Type] = true
		causeCount[causes[i]]++

		score := severityScore(ex)
		total += score
		if score > bestScore {
			bestScore = score
			representative = ex.ID
		}
	}

	return models.ExceptionCluster{
		ID:             clusterID(method, key),
		Key:            key,
		Method:         method,
		MemberIDs:      memberIDs,
		Representative: representative,
		ProbableCause:  modalCause(causeCount),
		Severity:       bucketSeverity(float64(total) / float64(len(members))),
		Accounts:       sortedKeys(accountSet),
		Products:       sortedKeys(productSet),
		Types:          sortedTypes(typeSet),
	}
}

// clusterID derives a stable id from the method and key alone, so the same
// disagreements always produce the same cluster id across runs.
func clusterID(method models.ClusterMethod, key string) string {
	prefix := "EXAC"
	if method == models.ClusterFuzzy {
		prefix = "FUZZ"
	}
	sum := sha256.Sum256([]byte(string(method) + "|" + key))
	return "CLU_" + prefix + "_" + hex.EncodeToString(sum[:])[:8]
}

// severityScore grades one exception on a 1..10 scale.
func severityScore(ex models.Exception) int {
	score := 5
	switch ex.Type {
	case models.ExceptionMissingExternal, models.ExceptionNWayMissing:
		score += 3
	case models.ExceptionMissingInternal, models.ExceptionNWayDisagreement:
		score += 2
	case models.ExceptionFieldMismatch:
		price, qty := false, false
		for _, b := range allBreaks(ex) {
			if b.Within {
				continue
			}
			switch NormalizeField(b.Field) {
			case "price":
				price = true
			case "quantity":
				qty = true
			}
		}
		if price {
			score += 2
		} else if qty {
			score++
		}
	}
	if ex.Notional.GreaterThan(notionalHigh) {
		score += 2
	} else if ex.Notional.GreaterThan(notionalMedium) {
		score++
	}
	if score > 10 {
		score = 10
	}
	if score < 1 {
		score = 1
	}
	return score
}

// bucketSeverity maps a mean member score onto the severity scale.
func bucketSeverity(mean float64) models.Severity {
	switch {
	case mean >= 8:
		return models.SeverityCritical
	case mean >= 6:
		return models.SeverityHigh
	case mean >= 4:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// modalCause returns the most frequent cause; ties break lexicographically.
func modalCause(counts map[string]int) string {
	best, bestN := "", -1
	for cause, n := range counts {
		if n > bestN || (n == bestN && cause < best) {
			best, bestN = cause, n
		}
	}
	return best
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTypes(set map[models.ExceptionType]bool) []models.ExceptionType {
	out := make([]models.ExceptionType, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
