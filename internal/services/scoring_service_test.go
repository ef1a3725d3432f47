package services

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeScore(t *testing.T) {
	questions := SampleQuestions()

	tests := []struct {
		name         string
		answers      func() *AnswerSet
		wantOverall  float64
		wantFindings []Finding
	}{
		{
			name:         "no answers",
			answers:      func() *AnswerSet { return NewAnswerSet("store-1", testStart) },
			wantOverall:  0,
			wantFindings: []Finding{},
		},
		{
			name:         "all affirmative",
			answers:      func() *AnswerSet { return answerAll(questions, Affirmative) },
			wantOverall:  100,
			wantFindings: []Finding{},
		},
		{
			name: "first question negative",
			answers: func() *AnswerSet {
				set := answerAll(questions, Affirmative)
				set.SetResponse("1", Negative)
				set.SetJustification("1", "sem estoque")
				return set
			},
			wantOverall: 75,
			wantFindings: []Finding{
				{QuestionID: "1", Response: Negative, PointsLost: 25},
			},
		},
		{
			name: "partial loses half the weight",
			answers: func() *AnswerSet {
				set := answerAll(questions, Affirmative)
				set.SetResponse("2", Partial)
				return set
			},
			wantOverall: 90,
			wantFindings: []Finding{
				{QuestionID: "2", Response: Partial, PointsLost: 10},
			},
		},
		{
			name: "unanswered questions are left out",
			answers: func() *AnswerSet {
				set := NewAnswerSet("store-1", testStart)
				set.SetResponse("1", Affirmative) // 25
				set.SetResponse("2", Negative)    // 20
				return set
			},
			wantOverall: 25.0 / 45.0 * 100,
			wantFindings: []Finding{
				{QuestionID: "2", Response: Negative, PointsLost: 20},
			},
		},
		{
			name:        "all negative",
			answers:     func() *AnswerSet { return answerAll(questions, Negative) },
			wantOverall: 0,
			wantFindings: []Finding{
				{QuestionID: "1", Response: Negative, PointsLost: 25},
				{QuestionID: "2", Response: Negative, PointsLost: 20},
				{QuestionID: "3", Response: Negative, PointsLost: 25},
				{QuestionID: "4", Response: Negative, PointsLost: 15},
				{QuestionID: "5", Response: Negative, PointsLost: 15},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeScore(tt.answers(), questions)

			if !almostEqual(got.OverallPercent, tt.wantOverall) {
				t.Errorf("OverallPercent = %v, want %v", got.OverallPercent, tt.wantOverall)
			}
			if len(got.Findings) != len(tt.wantFindings) {
				t.Fatalf("got %d findings, want %d: %+v", len(got.Findings), len(tt.wantFindings), got.Findings)
			}
			for i, want := range tt.wantFindings {
				f := got.Findings[i]
				if f.QuestionID != want.QuestionID || f.Response != want.Response || !almostEqual(f.PointsLost, want.PointsLost) {
					t.Errorf("finding %d = %+v, want %+v", i, f, want)
				}
			}
		})
	}
}

func TestComputeScore_PerCategory(t *testing.T) {
	questions := SampleQuestions()
	set := answerAll(questions, Affirmative)
	set.SetResponse("5", Partial)  // Atendimento: 7.5 / 15
	set.SetResponse("4", Negative) // Loja: 70 / 85

	got := ComputeScore(set, questions)

	if want := 50.0; !almostEqual(got.PerCategory["Atendimento"], want) {
		t.Errorf("Atendimento = %v, want %v", got.PerCategory["Atendimento"], want)
	}
	if want := 70.0 / 85.0 * 100; !almostEqual(got.PerCategory["Loja"], want) {
		t.Errorf("Loja = %v, want %v", got.PerCategory["Loja"], want)
	}
	if len(got.PerCategory) != 2 {
		t.Errorf("got %d categories, want 2", len(got.PerCategory))
	}
}

func TestComputeScore_CategoryWithoutAnswersIsAbsent(t *testing.T) {
	questions := SampleQuestions()
	set := NewAnswerSet("store-1", testStart)
	set.SetResponse("5", Affirmative)

	got := ComputeScore(set, questions)
	if _, ok := got.PerCategory["Loja"]; ok {
		t.Errorf("expected no Loja entry, got %v", got.PerCategory)
	}
	if got.PerCategory["Atendimento"] != 100 {
		t.Errorf("Atendimento = %v, want 100", got.PerCategory["Atendimento"])
	}
}

func TestComputeScore_EntryOrderDoesNotMatter(t *testing.T) {
	questions := SampleQuestions()
	responses := map[string]Response{"1": Partial, "2": Affirmative, "3": Negative, "4": Partial, "5": Affirmative}

	forward := NewAnswerSet("store-1", testStart)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		forward.SetResponse(id, responses[id])
	}
	backward := NewAnswerSet("store-1", testStart)
	for _, id := range []string{"5", "4", "3", "2", "1"} {
		backward.SetResponse(id, responses[id])
	}

	reversed := make([]Question, len(questions))
	for i, q := range questions {
		reversed[len(questions)-1-i] = q
	}

	a := ComputeScore(forward, questions)
	b := ComputeScore(backward, reversed)

	if RoundCents(a.OverallPercent) != RoundCents(b.OverallPercent) {
		t.Errorf("overall differs: %v vs %v", a.OverallPercent, b.OverallPercent)
	}
	if len(a.Findings) != len(b.Findings) {
		t.Fatalf("findings differ: %+v vs %+v", a.Findings, b.Findings)
	}
	for i := range a.Findings {
		if a.Findings[i].QuestionID != b.Findings[i].QuestionID {
			t.Errorf("finding %d: %s vs %s", i, a.Findings[i].QuestionID, b.Findings[i].QuestionID)
		}
	}
}

func TestComputeScore_PartialLowersAffirmativeOnlyScore(t *testing.T) {
	questions := SampleQuestions()
	set := NewAnswerSet("store-1", testStart)
	set.SetResponse("1", Affirmative)
	set.SetResponse("2", Affirmative)
	before := ComputeScore(set, questions).OverallPercent

	set.SetResponse("3", Partial)
	after := ComputeScore(set, questions).OverallPercent

	if !(after < before) {
		t.Errorf("adding a partial answer: %v -> %v, want a decrease", before, after)
	}
}

func TestComputeScore_Idempotent(t *testing.T) {
	questions := SampleQuestions()
	set := answerAll(questions, Partial)
	set.SetResponse("3", Negative)

	first := ComputeScore(set, questions)
	second := ComputeScore(set, questions)
	if first.OverallPercent != second.OverallPercent {
		t.Errorf("re-run changed the score: %v vs %v", first.OverallPercent, second.OverallPercent)
	}
	if first.Answered != 5 || first.Total != 5 {
		t.Errorf("Answered/Total = %d/%d, want 5/5", first.Answered, first.Total)
	}
}

func TestComputeScore_Rating(t *testing.T) {
	questions := SampleQuestions()

	set := answerAll(questions, Affirmative)
	if got := ComputeScore(set, questions).Rating; got != RatingPass {
		t.Errorf("all affirmative rating = %+v, want %+v", got, RatingPass)
	}

	set.SetResponse("1", Negative)
	if got := ComputeScore(set, questions).Rating; got != RatingAttention {
		t.Errorf("75%% rating = %+v, want %+v", got, RatingAttention)
	}
}

func TestRoundCents(t *testing.T) {
	if got := RoundCents(55.555555); got != 55.56 {
		t.Errorf("RoundCents() = %v, want 55.56", got)
	}
}

func TestComputeScore_RatingFollowsDisplayedPercent(t *testing.T) {
	questions := []Question{
		{ID: "a", Category: "Loja", Weight: 899, Order: 1},
		{ID: "b", Category: "Loja", Weight: 100, Order: 2},
	}
	set := NewAnswerSet("store-1", testStart)
	set.SetResponse("a", Affirmative)
	set.SetResponse("b", Negative)

	got := ComputeScore(set, questions)

	if got.OverallPercent >= 90 {
		t.Fatalf("OverallPercent = %v, want just below 90", got.OverallPercent)
	}
	if got.Rating != RatingPass {
		t.Errorf("Rating = %v, want %v for a score shown as %s", got.Rating, RatingPass, formatPercent(got.OverallPercent))
	}
	if s := formatPercent(got.OverallPercent); s != "90.0%" {
		t.Errorf("formatPercent = %q, want 90.0%%", s)
	}
}
