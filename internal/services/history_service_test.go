package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/paulexconde/storecheck/internal/models"
	"github.com/paulexconde/storecheck/internal/pkg/paginator"
	"github.com/paulexconde/storecheck/pkg/fault"
)

type recordingPaginator struct {
	query string
	args  []any
}

func (p *recordingPaginator) PaginateQuery(ctx context.Context, query string, args []any, page, limit int) (*paginator.PaginatedResponse[models.ChecklistSummary], error) {
	p.query = query
	p.args = args
	page, limit = paginator.Normalize(page, limit)
	return paginator.Build([]models.ChecklistSummary{{StoreName: "Matriz"}}, page, limit, 1), nil
}

func TestHistoryService_List(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		filter    HistoryFilter
		wantSince *time.Time
	}{
		{FilterAll, nil},
		{"", nil},
		{FilterToday, ptrTime(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))},
		{FilterWeek, ptrTime(time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			pages := &recordingPaginator{}
			svc := &historyServiceImpl{pages: pages, now: func() time.Time { return now }}

			res, err := svc.List(context.Background(), "u1", tt.filter, 0, 0)
			if err != nil {
				t.Fatal(err)
			}
			if res.CurrentPage != 1 || len(res.Items) != 1 {
				t.Errorf("response = %+v", res)
			}
			if pages.args[0] != "u1" {
				t.Errorf("first arg = %v, want the user id", pages.args[0])
			}
			if !strings.HasSuffix(pages.query, "ORDER BY c.data_utc DESC") {
				t.Errorf("query = %s", pages.query)
			}

			if tt.wantSince == nil {
				if len(pages.args) != 1 {
					t.Errorf("args = %v, want no date bound", pages.args)
				}
				return
			}
			if len(pages.args) != 2 || !pages.args[1].(time.Time).Equal(*tt.wantSince) {
				t.Errorf("args = %v, want since %v", pages.args, *tt.wantSince)
			}
		})
	}
}

func TestHistoryService_ListErrors(t *testing.T) {
	svc := NewHistoryService(&recordingPaginator{})

	if _, err := svc.List(context.Background(), "", FilterAll, 1, 10); !fault.IsClientError(err) {
		t.Errorf("missing user error = %v", err)
	}
	if _, err := svc.List(context.Background(), "u1", "month", 1, 10); !fault.IsClientError(err) {
		t.Errorf("unknown filter error = %v", err)
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
