package history

import (
	"fmt"
	"math"
	"sort"

	"checkgate/internal/stage"
)

// StageStats holds duration and pass-rate stats for one stage.
type StageStats struct {
	Stage    string  `json:"stage"`
	Count    int     `json:"count"`
	PassRate float64 `json:"pass_rate_pct"`
	Avg      float64 `json:"avg_seconds"`
	P50      float64 `json:"p50_seconds"`
	P95      float64 `json:"p95_seconds"`
}

// StageDurationStats aggregates recorded stage results into per-stage timing
// and pass-rate stats. since filters on the run's start time when non-empty
// (any SQLite datetime expression works, e.g. "2026-01-01").
func StageDurationStats(d *DB, since string) ([]StageStats, error) {
	query := `
		SELECT sr.stage, sr.success, sr.duration_ms
		FROM stage_results sr
		JOIN runs r ON r.id = sr.run_id`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE r.started_at >= ?`
		args = append(args, since)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage durations: %w", err)
	}
	defer rows.Close()

	durations := make(map[string][]float64)
	passes := make(map[string]int)
	for rows.Next() {
		var name string
		var success bool
		var durationMs int
		if err := rows.Scan(&name, &success, &durationMs); err != nil {
			return nil, fmt.Errorf("scan stage duration: %w", err)
		}
		durations[name] = append(durations[name], float64(durationMs)/1000.0)
		if success {
			passes[name]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []StageStats
	for name, ds := range durations {
		sort.Float64s(ds)
		results = append(results, StageStats{
			Stage:    name,
			Count:    len(ds),
			PassRate: pct(passes[name], len(ds)),
			Avg:      avg(ds),
			P50:      percentile(ds, 50),
			P95:      percentile(ds, 95),
		})
	}

	// Present stages in execution order, anything unknown after.
	rank := make(map[string]int, len(stage.CanonicalOrder()))
	for i, n := range stage.CanonicalOrder() {
		rank[string(n)] = i
	}
	sort.Slice(results, func(i, j int) bool {
		ri, iKnown := rank[results[i].Stage]
		rj, jKnown := rank[results[j].Stage]
		if iKnown != jKnown {
			return iKnown
		}
		if iKnown && jKnown && ri != rj {
			return ri < rj
		}
		return results[i].Stage < results[j].Stage
	})
	return results, nil
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
