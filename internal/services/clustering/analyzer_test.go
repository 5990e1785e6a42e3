package clustering

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeRecon/internal/domain/models"
	"TradeRecon/internal/domain/service"
	"TradeRecon/pkg/logger"
)

func newTestAnalyzer(cfg Config) *Analyzer {
	return NewAnalyzer(cfg, NewKeywordCauseExtractor(), logger.Nop())
}

func priceMismatch(id, symbol, account string, notional int64) models.Exception {
	return models.Exception{
		ID:       id,
		Type:     models.ExceptionFieldMismatch,
		TradeID:  id,
		Symbol:   symbol,
		Account:  account,
		Notional: decimal.NewFromInt(notional),
		Breaks: []models.ToleranceBreak{{
			Field:         "price",
			InternalValue: decimal.NewFromInt(100),
			ExternalValue: decimal.NewFromInt(101),
			DiffAbsolute:  decimal.NewFromInt(1),
			Limit:         decimal.NewFromFloat(0.5),
			ModeUsed:      models.ToleranceAbsolute,
			Within:        false,
			Description:   "price difference 1 exceeds tolerance 0.5",
		}},
		Description: "price difference 1 exceeds tolerance 0.5",
		Severity:    models.SeverityHigh,
	}
}

func TestAnalyzeExactPassGroupsIdenticalExceptions(t *testing.T) {
	var exceptions []models.Exception
	for i := 0; i < 5; i++ {
		exceptions = append(exceptions, priceMismatch(fmt.Sprintf("EXC-FM-%d", i), "ESZ5", "CLIENT_A", 50_000))
	}

	a := newTestAnalyzer(Config{MinClusterSize: 2, MaxClusters: 10, EnableExact: true, EnableFuzzy: true})
	clusters := a.Analyze(exceptions)

	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.Equal(t, models.ClusterExact, c.Method)
	assert.Equal(t, 5, c.Size())
	assert.Equal(t, service.CausePriceMismatch, c.ProbableCause)
	assert.Equal(t, []string{"CLIENT_A"}, c.Accounts)
	assert.Equal(t, []string{"ESZ5"}, c.Products)
	assert.Contains(t, c.MemberIDs, c.Representative)
	assert.True(t, strings.HasPrefix(c.ID, "CLU_EXAC_"), "id %q", c.ID)
}

func TestAnalyzeRespectsMinClusterSize(t *testing.T) {
	a := newTestAnalyzer(Config{MinClusterSize: 3, MaxClusters: 10, EnableExact: true, EnableFuzzy: true})
	clusters := a.Analyze([]models.Exception{
		priceMismatch("EXC-FM-1", "ESZ5", "CLIENT_A", 50_000),
		priceMismatch("EXC-FM-2", "ESZ5", "CLIENT_A", 50_000),
	})
	assert.Empty(t, clusters)
}

func TestAnalyzeFuzzyPassTakesExactLeftovers(t *testing.T) {
	// Different coarse product families break the exact key, but both map
	// onto the equity_futures product type, so the fuzzy hash agrees. A
	// misspelled term still canonicalizes onto the vocabulary.
	a := priceMismatch("EXC-FM-1", "ESZ5", "CLIENT_A", 50_000)
	b := priceMismatch("EXC-FM-2", "NQZ5", "CLIENT_B", 50_000)
	b.Description = "price diference 2 exceeds tolerance 0.5"

	an := newTestAnalyzer(Config{MinClusterSize: 2, MaxClusters: 10, EnableExact: true, EnableFuzzy: true})
	clusters := an.Analyze([]models.Exception{a, b})

	require.Len(t, clusters, 1)
	assert.Equal(t, models.ClusterFuzzy, clusters[0].Method)
	assert.Equal(t, []string{"EXC-FM-1", "EXC-FM-2"}, clusters[0].MemberIDs)
	assert.True(t, strings.HasPrefix(clusters[0].ID, "CLU_FUZZ_"), "id %q", clusters[0].ID)
}

func TestAnalyzeExactMembersInvisibleToFuzzyPass(t *testing.T) {
	var exceptions []models.Exception
	for i := 0; i < 4; i++ {
		exceptions = append(exceptions, priceMismatch(fmt.Sprintf("EXC-FM-%d", i), "ESZ5", "CLIENT_A", 50_000))
	}

	a := newTestAnalyzer(Config{MinClusterSize: 2, MaxClusters: 10, EnableExact: true, EnableFuzzy: true})
	clusters := a.Analyze(exceptions)

	require.Len(t, clusters, 1)
	assert.Equal(t, models.ClusterExact, clusters[0].Method)
}

func TestAnalyzeDeterministic(t *testing.T) {
	exceptions := []models.Exception{
		priceMismatch("EXC-FM-1", "ESZ5", "CLIENT_A", 50_000),
		priceMismatch("EXC-FM-2", "ESZ5", "CLIENT_A", 50_000),
		{
			ID: "EXC-ME-T1", Type: models.ExceptionMissingExternal, TradeID: "T1",
			Symbol: "IRS_10Y", Account: "BANK_X", Notional: decimal.NewFromInt(2_000_000),
			Description: "trade T1 booked internally but missing from the external source",
		},
		{
			ID: "EXC-ME-T2", Type: models.ExceptionMissingExternal, TradeID: "T2",
			Symbol: "IRS_10Y", Account: "BANK_X", Notional: decimal.NewFromInt(2_000_000),
			Description: "trade T2 booked internally but missing from the external source",
		},
	}

	a := newTestAnalyzer(Config{MinClusterSize: 2, MaxClusters: 10, EnableExact: true, EnableFuzzy: true})
	first := a.Analyze(exceptions)
	second := a.Analyze(exceptions)
	require.Equal(t, first, second)
}

func TestAnalyzeSeverityOrderingAndBuckets(t *testing.T) {
	// High-notional missing trades score 5+3+2=10, bucketed CRITICAL; the
	// small price mismatches score 7, bucketed HIGH.
	exceptions := []models.Exception{
		priceMismatch("EXC-FM-1", "ESZ5", "CLIENT_A", 50_000),
		priceMismatch("EXC-FM-2", "ESZ5", "CLIENT_A", 50_000),
		{
			ID: "EXC-ME-T1", Type: models.ExceptionMissingExternal, TradeID: "T1",
			Symbol: "IRS_10Y", Account: "BANK_X", Notional: decimal.NewFromInt(5_000_000),
			Description: "trade T1 booked internally but missing from the external source",
		},
		{
			ID: "EXC-ME-T2", Type: models.ExceptionMissingExternal, TradeID: "T2",
			Symbol: "IRS_10Y", Account: "BANK_X", Notional: decimal.NewFromInt(5_000_000),
			Description: "trade T2 booked internally but missing from the external source",
		},
	}

	a := newTestAnalyzer(Config{MinClusterSize: 2, MaxClusters: 10, EnableExact: true, EnableFuzzy: true})
	clusters := a.Analyze(exceptions)

	require.Len(t, clusters, 2)
	assert.Equal(t, models.SeverityCritical, clusters[0].Severity)
	assert.Equal(t, service.CauseMissingTrade, clusters[0].ProbableCause)
	assert.Equal(t, models.SeverityHigh, clusters[1].Severity)
}

func TestAnalyzeTruncatesToMaxClusters(t *testing.T) {
	var exceptions []models.Exception
	for i := 0; i < 6; i++ {
		account := fmt.Sprintf("CLIENT_%d", i/2)
		exceptions = append(exceptions,
			priceMismatch(fmt.Sprintf("EXC-FM-%d-a", i), "ESZ5", account, 50_000),
			priceMismatch(fmt.Sprintf("EXC-FM-%d-b", i), "ESZ5", account, 50_000),
		)
	}
	// Same account family folds these together; vary the family instead.
	exceptions[4].Account, exceptions[5].Account = "BANK_X", "BANK_X"
	exceptions[8].Account, exceptions[9].Account = "FUND_Y", "FUND_Y"

	a := newTestAnalyzer(Config{MinClusterSize: 2, MaxClusters: 2, EnableExact: true, EnableFuzzy: true})
	clusters := a.Analyze(exceptions)
	assert.Len(t, clusters, 2)
}

func TestClusterIDStableAcrossRuns(t *testing.T) {
	id1 := clusterID(models.ClusterExact, "FIELD_MISMATCH|price|ES_FUTURES|client|price_mismatch")
	id2 := clusterID(models.ClusterExact, "FIELD_MISMATCH|price|ES_FUTURES|client|price_mismatch")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, clusterID(models.ClusterFuzzy, "FIELD_MISMATCH|price|ES_FUTURES|client|price_mismatch"))
}

func TestSeverityScoreCapsAtTen(t *testing.T) {
	ex := models.Exception{
		Type:     models.ExceptionMissingExternal,
		Notional: decimal.NewFromInt(50_000_000),
	}
	assert.Equal(t, 10, severityScore(ex))
}

func TestModalCauseTieBreaksLexicographically(t *testing.T) {
	counts := map[string]int{
		service.CauseQuantityMismatch: 2,
		service.CausePriceMismatch:    2,
	}
	assert.Equal(t, service.CausePriceMismatch, modalCause(counts))
}
