package services

import (
	"context"
	"sort"
	"time"

	"github.com/paulexconde/storecheck/pkg/fault"
)

const topFailuresLimit = 5

// A checklist score with the store it was taken at.
type ScoreRow struct {
	StoreID   string  `db:"store_id"`
	StoreName string  `db:"store_nome"`
	Score     float64 `db:"score_total"`
}

// A single persisted answer with its question.
type AnswerStat struct {
	QuestionID string `db:"question_id"`
	Title      string `db:"titulo"`
	Category   string `db:"categoria"`
	Response   string `db:"resposta"`
}

type DashboardStore interface {
	ScoreRows(ctx context.Context, from, to time.Time) ([]ScoreRow, error)
	AnswerStats(ctx context.Context, from, to time.Time) ([]AnswerStat, error)
}

type StoreScore struct {
	StoreID string  `json:"store_id"`
	Store   string  `json:"store"`
	Score   float64 `json:"score"`
	Count   int     `json:"count"`
}

type QuestionFailure struct {
	QuestionID  string  `json:"question_id"`
	Question    string  `json:"question"`
	Category    string  `json:"category"`
	FailureRate float64 `json:"failure_rate"`
}

type Dashboard struct {
	TotalChecklists int               `json:"total_checklists"`
	AverageScore    float64           `json:"average_score"`
	ScoreByStore    []StoreScore      `json:"score_by_store"`
	TopFailures     []QuestionFailure `json:"top_failures"`
}

type DashboardService interface {
	Summary(ctx context.Context, from, to time.Time) (*Dashboard, error)
}

type dashboardServiceImpl struct {
	store DashboardStore
}

func NewDashboardService(store DashboardStore) DashboardService {
	return &dashboardServiceImpl{store: store}
}

func (s *dashboardServiceImpl) Summary(ctx context.Context, from, to time.Time) (*Dashboard, error) {
	if to.Before(from) {
		return nil, fault.NewClientError("invalid date range", nil)
	}

	scores, err := s.store.ScoreRows(ctx, from, to)
	if err != nil {
		return nil, fault.NewUpstreamError("failed to load checklist scores", err)
	}
	answers, err := s.store.AnswerStats(ctx, from, to)
	if err != nil {
		return nil, fault.NewUpstreamError("failed to load answers", err)
	}

	d := BuildDashboard(scores, answers)
	return &d, nil
}

// BuildDashboard aggregates scores per store and non-SIM rates per question.
func BuildDashboard(scores []ScoreRow, answers []AnswerStat) Dashboard {
	d := Dashboard{
		TotalChecklists: len(scores),
		ScoreByStore:    []StoreScore{},
		TopFailures:     []QuestionFailure{},
	}

	var total float64
	byStore := map[string]*StoreScore{}
	for _, row := range scores {
		total += row.Score
		st, ok := byStore[row.StoreID]
		if !ok {
			st = &StoreScore{StoreID: row.StoreID, Store: row.StoreName}
			byStore[row.StoreID] = st
		}
		st.Score += row.Score
		st.Count++
	}
	if len(scores) > 0 {
		d.AverageScore = RoundCents(total / float64(len(scores)))
	}
	for _, st := range byStore {
		st.Score = RoundCents(st.Score / float64(st.Count))
		d.ScoreByStore = append(d.ScoreByStore, *st)
	}
	sort.Slice(d.ScoreByStore, func(i, j int) bool {
		a, b := d.ScoreByStore[i], d.ScoreByStore[j]
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		return a.StoreID < b.StoreID
	})

	type counter struct {
		stat     AnswerStat
		answered int
		failed   int
	}
	byQuestion := map[string]*counter{}
	for _, a := range answers {
		c, ok := byQuestion[a.QuestionID]
		if !ok {
			c = &counter{stat: a}
			byQuestion[a.QuestionID] = c
		}
		c.answered++
		if Response(a.Response) != Affirmative {
			c.failed++
		}
	}
	for _, c := range byQuestion {
		if c.failed == 0 {
			continue
		}
		d.TopFailures = append(d.TopFailures, QuestionFailure{
			QuestionID:  c.stat.QuestionID,
			Question:    c.stat.Title,
			Category:    c.stat.Category,
			FailureRate: RoundCents(float64(c.failed) / float64(c.answered) * 100),
		})
	}
	sort.Slice(d.TopFailures, func(i, j int) bool {
		if d.TopFailures[i].FailureRate != d.TopFailures[j].FailureRate {
			return d.TopFailures[i].FailureRate > d.TopFailures[j].FailureRate
		}
		return d.TopFailures[i].QuestionID < d.TopFailures[j].QuestionID
	})
	if len(d.TopFailures) > topFailuresLimit {
		d.TopFailures = d.TopFailures[:topFailuresLimit]
	}

	return d
}
