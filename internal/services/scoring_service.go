package services

import (
	"math"
	"sort"
)

// A non-affirmative answer and the weight it cost.
type Finding struct {
	QuestionID string   `json:"question_id"`
	Category   string   `json:"category"`
	Title      string   `json:"title"`
	Response   Response `json:"response"`
	PointsLost float64  `json:"points_lost"`
}

type ScoreResult struct {
	OverallPercent float64            `json:"overall_percent"`
	PerCategory    map[string]float64 `json:"per_category"`
	Findings       []Finding          `json:"findings"`
	Rating         Rating             `json:"rating"`
	Answered       int                `json:"answered"`
	Total          int                `json:"total"`
}

type tally struct {
	earned float64
	weight float64
}

func (t tally) percent() float64 {
	if t.weight == 0 {
		return 0
	}
	return t.earned / t.weight * 100
}

// ComputeScore scores only the questions that have a response; unanswered
// questions are left out of both the earned points and the weight.
func ComputeScore(answers *AnswerSet, questions []Question) ScoreResult {
	ordered := sortedByOrder(questions)

	var overall tally
	byCategory := map[string]*tally{}
	findings := []Finding{}
	answered := 0

	for _, q := range ordered {
		r := answers.ResponseFor(q.ID)
		if !r.Valid() {
			continue
		}
		answered++

		w := float64(q.Weight)
		earned := w * r.Factor()

		overall.earned += earned
		overall.weight += w

		c, ok := byCategory[q.Category]
		if !ok {
			c = &tally{}
			byCategory[q.Category] = c
		}
		c.earned += earned
		c.weight += w

		if r != Affirmative {
			findings = append(findings, Finding{
				QuestionID: q.ID,
				Category:   q.Category,
				Title:      q.Title,
				Response:   r,
				PointsLost: w - earned,
			})
		}
	}

	perCategory := make(map[string]float64, len(byCategory))
	for name, t := range byCategory {
		perCategory[name] = t.percent()
	}

	overallPercent := overall.percent()

	return ScoreResult{
		OverallPercent: overallPercent,
		PerCategory:    perCategory,
		Findings:       findings,
		Rating:         Classify(DisplayPercent(overallPercent)),
		Answered:       answered,
		Total:          len(questions),
	}
}

// DisplayPercent rounds to the one decimal shown to auditors. Ratings are
// taken from this value so a score never reads 90.0% and rates below 90.
func DisplayPercent(v float64) float64 {
	return math.Round(v*10) / 10
}

// RoundCents rounds a percentage to two decimal places for display and storage.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// sortedByOrder returns a copy ordered by Order, keeping input order on ties.
func sortedByOrder(questions []Question) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
