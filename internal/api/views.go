package api

import (
	"time"

	"skyblock-price-lab/internal/orchestrator"
)

type runView struct {
	Stage      string    `json:"stage"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	Skipped    bool      `json:"skipped"`

	PagesFetched int `json:"pages_fetched"`
	PagesSkipped int `json:"pages_skipped"`
	PagesFailed  int `json:"pages_failed"`
	Inserted     int `json:"observations_inserted"`

	Candidates int `json:"candidates"`
	Updated    int `json:"summaries_updated"`
	Failed     int `json:"candidates_failed"`

	Pruned int64    `json:"observations_pruned"`
	Errors []string `json:"errors"`
}

func newRunView(r *orchestrator.RunResult) runView {
	v := runView{
		Stage:      string(r.Stage),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
		Skipped:    r.Skipped,
		Pruned:     r.Pruned,
		Errors:     r.Errors,
	}
	if in := r.Ingestion; in != nil {
		v.PagesFetched = in.PagesFetched
		v.PagesSkipped = in.PagesSkipped
		v.PagesFailed = in.PagesFailed
		v.Inserted = in.Inserted
	}
	if agg := r.Aggregation; agg != nil {
		v.Candidates = agg.Candidates
		v.Updated = agg.Updated
		v.Failed = agg.Failed
	}
	if v.Errors == nil {
		v.Errors = []string{}
	}
	return v
}
