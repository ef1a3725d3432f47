package services

import (
	"context"
	"testing"
	"time"

	"github.com/paulexconde/storecheck/pkg/fault"
)

func TestBuildDashboard(t *testing.T) {
	scores := []ScoreRow{
		{StoreID: "1", StoreName: "Matriz", Score: 100},
		{StoreID: "2", StoreName: "Catedral", Score: 70},
		{StoreID: "1", StoreName: "Matriz", Score: 80},
	}
	answers := []AnswerStat{
		{QuestionID: "1", Title: "Produtos", Category: "Loja", Response: "NAO"},
		{QuestionID: "1", Title: "Produtos", Category: "Loja", Response: "SIM"},
		{QuestionID: "2", Title: "Pontas", Category: "Loja", Response: "MEIO"},
		{QuestionID: "3", Title: "Ilhas", Category: "Loja", Response: "SIM"},
	}

	d := BuildDashboard(scores, answers)

	if d.TotalChecklists != 3 {
		t.Errorf("TotalChecklists = %d, want 3", d.TotalChecklists)
	}
	if d.AverageScore != 83.33 {
		t.Errorf("AverageScore = %v, want 83.33", d.AverageScore)
	}

	wantStores := []StoreScore{{StoreID: "2", Store: "Catedral", Score: 70, Count: 1}, {StoreID: "1", Store: "Matriz", Score: 90, Count: 2}}
	if len(d.ScoreByStore) != len(wantStores) {
		t.Fatalf("ScoreByStore = %+v", d.ScoreByStore)
	}
	for i, want := range wantStores {
		if d.ScoreByStore[i] != want {
			t.Errorf("ScoreByStore[%d] = %+v, want %+v", i, d.ScoreByStore[i], want)
		}
	}

	if len(d.TopFailures) != 2 {
		t.Fatalf("TopFailures = %+v, want questions 2 and 1", d.TopFailures)
	}
	if d.TopFailures[0].QuestionID != "2" || d.TopFailures[0].FailureRate != 100 {
		t.Errorf("TopFailures[0] = %+v", d.TopFailures[0])
	}
	if d.TopFailures[1].QuestionID != "1" || d.TopFailures[1].FailureRate != 50 {
		t.Errorf("TopFailures[1] = %+v", d.TopFailures[1])
	}
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil, nil)
	if d.TotalChecklists != 0 || d.AverageScore != 0 || d.ScoreByStore == nil || d.TopFailures == nil {
		t.Errorf("empty dashboard = %+v", d)
	}
}

func TestBuildDashboard_TopFailuresLimit(t *testing.T) {
	var answers []AnswerStat
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		answers = append(answers, AnswerStat{QuestionID: id, Response: "NAO"})
	}

	d := BuildDashboard(nil, answers)
	if len(d.TopFailures) != 5 {
		t.Fatalf("got %d failures, want 5", len(d.TopFailures))
	}
	if d.TopFailures[0].QuestionID != "a" || d.TopFailures[4].QuestionID != "e" {
		t.Errorf("ties should break on question id, got %+v", d.TopFailures)
	}
}

type fakeDashboardStore struct{}

func (fakeDashboardStore) ScoreRows(ctx context.Context, from, to time.Time) ([]ScoreRow, error) {
	return []ScoreRow{{StoreID: "1", StoreName: "Matriz", Score: 50}}, nil
}

func (fakeDashboardStore) AnswerStats(ctx context.Context, from, to time.Time) ([]AnswerStat, error) {
	return nil, nil
}

func TestDashboardService_Summary(t *testing.T) {
	svc := NewDashboardService(fakeDashboardStore{})

	if _, err := svc.Summary(context.Background(), testStart, testStart.Add(-time.Hour)); !fault.IsClientError(err) {
		t.Errorf("inverted range error = %v, want client error", err)
	}

	d, err := svc.Summary(context.Background(), testStart.Add(-time.Hour), testStart)
	if err != nil {
		t.Fatal(err)
	}
	if d.AverageScore != 50 {
		t.Errorf("AverageScore = %v, want 50", d.AverageScore)
	}
}

func TestBuildDashboard_SameNameStoresStaySeparate(t *testing.T) {
	scores := []ScoreRow{
		{StoreID: "7", StoreName: "Centro", Score: 100},
		{StoreID: "3", StoreName: "Centro", Score: 50},
	}

	d := BuildDashboard(scores, nil)

	want := []StoreScore{
		{StoreID: "3", Store: "Centro", Score: 50, Count: 1},
		{StoreID: "7", Store: "Centro", Score: 100, Count: 1},
	}
	if len(d.ScoreByStore) != len(want) {
		t.Fatalf("ScoreByStore = %+v, want two entries", d.ScoreByStore)
	}
	for i := range want {
		if d.ScoreByStore[i] != want[i] {
			t.Errorf("ScoreByStore[%d] = %+v, want %+v", i, d.ScoreByStore[i], want[i])
		}
	}
}
