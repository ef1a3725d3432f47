package services

import (
	"context"
	"time"

	"github.com/paulexconde/storecheck/internal/models"
	"github.com/paulexconde/storecheck/internal/pkg/paginator"
	"github.com/paulexconde/storecheck/pkg/fault"
)

type HistoryFilter string

const (
	FilterAll   HistoryFilter = "all"
	FilterToday HistoryFilter = "today"
	FilterWeek  HistoryFilter = "week"
)

const historyQuery = `SELECT c.id, c.version_id, c.store_id, c.user_id, c.data_local, c.data_utc,
	c.lat, c.lng, c.acuracia, c.sem_gps, c.score_total, s.nome AS store_nome
FROM checklists c
JOIN stores s ON s.id = c.store_id
WHERE c.user_id = $1`

// Lists the checklists an auditor submitted.
type HistoryService interface {
	List(ctx context.Context, userID string, filter HistoryFilter, page, limit int) (*paginator.PaginatedResponse[models.ChecklistSummary], error)
}

type historyServiceImpl struct {
	pages paginator.Paginator[models.ChecklistSummary]
	now   func() time.Time
}

func NewHistoryService(pages paginator.Paginator[models.ChecklistSummary]) HistoryService {
	return &historyServiceImpl{pages: pages, now: time.Now}
}

func (s *historyServiceImpl) List(ctx context.Context, userID string, filter HistoryFilter, page, limit int) (*paginator.PaginatedResponse[models.ChecklistSummary], error) {
	if userID == "" {
		return nil, fault.NewClientError("cannot list checklists", fault.ErrUnauthenticated)
	}

	query := historyQuery
	args := []any{userID}

	if since, ok := filterSince(filter, s.now()); ok {
		query += " AND c.data_utc >= $2"
		args = append(args, since)
	} else if filter != "" && filter != FilterAll {
		return nil, fault.NewClientError("unknown filter "+string(filter), nil)
	}
	query += " ORDER BY c.data_utc DESC"

	res, err := s.pages.PaginateQuery(ctx, query, args, page, limit)
	if err != nil {
		return nil, fault.NewUpstreamError("failed to list checklists", err)
	}
	return res, nil
}

// filterSince returns the lower bound of a date filter in UTC.
func filterSince(filter HistoryFilter, now time.Time) (time.Time, bool) {
	switch filter {
	case FilterToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UTC(), true
	case FilterWeek:
		return now.AddDate(0, 0, -7).UTC(), true
	default:
		return time.Time{}, false
	}
}
