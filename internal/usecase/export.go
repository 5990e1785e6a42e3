package usecase

import (
	"time"

	"TradeRecon/internal/domain/models"
)

// Export flattens a two-way result into plain maps for report sinks.
// Decimals become strings so downstream serialization never loses
// precision; timestamps are RFC 3339.
func Export(result *Result) map[string]any {
	return map[string]any{
		"summary":     exportSummary(result.Summary),
		"exceptions":  exportExceptions(result.Exceptions),
		"clusters":    exportClusters(result.Clusters),
		"assignments": exportAssignments(result.Assignments),
	}
}

// ExportNWay flattens an n-way result.
func ExportNWay(result *NWayResult) map[string]any {
	return map[string]any{
		"matches":          result.Matches,
		"total_by_source":  result.TotalBySource,
		"sources_compared": result.SourcesCompared,
		"exceptions":       exportExceptions(result.Exceptions),
		"clusters":         exportClusters(result.Clusters),
		"assignments":      exportAssignments(result.Assignments),
	}
}

func exportSummary(s models.ReconSummary) map[string]any {
	return map[string]any{
		"total_internal":   s.TotalInternal,
		"total_external":   s.TotalExternal,
		"matches":          s.Matches,
		"mismatches":       s.Mismatches,
		"missing_internal": s.MissingInternal,
		"missing_external": s.MissingExternal,
		"match_rate_pct":   s.MatchRatePct,
	}
}

func exportExceptions(exceptions []models.Exception) []map[string]any {
	out := make([]map[string]any, 0, len(exceptions))
	for _, ex := range exceptions {
		m := map[string]any{
			"id":           ex.ID,
			"type":         string(ex.Type),
			"severity":     string(ex.Severity),
			"trade_id":     ex.TradeID,
			"symbol":       ex.Symbol,
			"account":      ex.Account,
			"counterparty": ex.Counterparty,
			"notional":     ex.Notional.String(),
			"description":  ex.Description,
			"causal_hint":  ex.CausalHint,
			"auto_cleared": ex.AutoCleared,
		}
		if ex.ClusterID != "" {
			m["cluster_id"] = ex.ClusterID
		}
		if len(ex.Breaks) > 0 {
			m["breaks"] = exportBreaks(ex.Breaks)
		}
		if ex.Authoritative != "" {
			m["authoritative"] = ex.Authoritative
		}
		if len(ex.Missing) > 0 {
			m["missing_sources"] = ex.Missing
		}
		if len(ex.Deltas) > 0 {
			deltas := make([]map[string]any, 0, len(ex.Deltas))
			for _, d := range ex.Deltas {
				deltas = append(deltas, map[string]any{
					"source": d.Source,
					"breaks": exportBreaks(d.Breaks),
				})
			}
			m["deltas"] = deltas
		}
		out = append(out, m)
	}
	return out
}

func exportBreaks(breaks []models.ToleranceBreak) []map[string]any {
	out := make([]map[string]any, 0, len(breaks))
	for _, b := range breaks {
		m := map[string]any{
			"field":          b.Field,
			"internal_value": b.InternalValue.String(),
			"external_value": b.ExternalValue.String(),
			"diff":           b.DiffAbsolute.String(),
			"limit":          b.Limit.String(),
			"mode":           string(b.ModeUsed),
			"within":         b.Within,
			"degraded":       b.Degraded,
			"description":    b.Description,
		}
		if b.HasTicks {
			m["diff_ticks"] = b.DiffTicks.String()
		}
		out = append(out, m)
	}
	return out
}

func exportClusters(clusters []models.ExceptionCluster) []map[string]any {
	out := make([]map[string]any, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, map[string]any{
			"id":             c.ID,
			"method":         string(c.Method),
			"size":           c.Size(),
			"member_ids":     c.MemberIDs,
			"representative": c.Representative,
			"probable_cause": c.ProbableCause,
			"severity":       string(c.Severity),
			"accounts":       c.Accounts,
			"products":       c.Products,
		})
	}
	return out
}

// exportAssignments keys the records by assignment id, matching how
// downstream trackers address them.
func exportAssignments(assignments []*models.ExceptionAssignment) map[string]map[string]any {
	out := make(map[string]map[string]any, len(assignments))
	for _, a := range assignments {
		m := map[string]any{
			"id":           a.ID,
			"item_id":      a.ItemID,
			"team":         a.Team,
			"assigned_by":  a.AssignedBy,
			"assigned_at":  a.AssignedAt.Format(time.RFC3339),
			"sla_severity": string(a.SLASeverity),
			"sla_due_at":   a.SLADueAt.Format(time.RFC3339),
			"escalate_at":  a.EscalateAt.Format(time.RFC3339),
			"sla_breached": a.SLABreached,
			"escalated":    a.Escalated,
			"status":       string(a.Status),
			"reason":       a.Reason,
			"confidence":   a.Confidence,
		}
		if a.ClusterID != "" {
			m["cluster_id"] = a.ClusterID
		}
		if !a.ResolvedAt.IsZero() {
			m["resolved_at"] = a.ResolvedAt.Format(time.RFC3339)
			m["resolved_by"] = a.ResolvedBy
			m["resolution_notes"] = a.ResolutionNotes
		}
		out[a.ID] = m
	}
	return out
}
