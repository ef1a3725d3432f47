package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulexconde/storecheck/internal/models"
	"github.com/paulexconde/storecheck/pkg/fault"
)

// QuestionSetRepository reads and writes question-set versions.
type QuestionSetRepository interface {
	Version(ctx context.Context, versionID string) (*models.QuestionSetVersion, error)
	QuestionsByVersion(ctx context.Context, versionID string) ([]Question, error)
	SaveQuestion(ctx context.Context, versionID string, q Question) (Question, error)
	// Stamps the version as published and makes it the only active one.
	PublishVersion(ctx context.Context, versionID string, weightSum int, at time.Time) (*models.QuestionSetVersion, error)
}

// Handles the admin question configuration workflow.
type ConfigService interface {
	Check(ctx context.Context, versionID string) (PublishCheck, error)
	Publish(ctx context.Context, versionID string) (*models.QuestionSetVersion, error)
	SaveQuestion(ctx context.Context, versionID string, q Question) (Question, error)
}

type configServiceImpl struct {
	repo QuestionSetRepository
	now  func() time.Time
}

func NewConfigService(repo QuestionSetRepository) ConfigService {
	return &configServiceImpl{repo: repo, now: time.Now}
}

func (s *configServiceImpl) draft(ctx context.Context, versionID string) (*models.QuestionSetVersion, error) {
	v, err := s.repo.Version(ctx, versionID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return nil, fault.NewClientError("checklist version not found", err)
		}
		return nil, fault.NewUpstreamError("failed to load checklist version", err)
	}
	if v.PublishedAt != nil {
		return nil, fault.NewClientError("published versions cannot be changed, create a new version", nil)
	}
	return v, nil
}

func (s *configServiceImpl) Check(ctx context.Context, versionID string) (PublishCheck, error) {
	questions, err := s.repo.QuestionsByVersion(ctx, versionID)
	if err != nil {
		return PublishCheck{}, fault.NewUpstreamError("failed to load questions", err)
	}
	return CheckPublishable(questions), nil
}

func (s *configServiceImpl) Publish(ctx context.Context, versionID string) (*models.QuestionSetVersion, error) {
	if _, err := s.draft(ctx, versionID); err != nil {
		return nil, err
	}

	check, err := s.Check(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if !check.OK() {
		msg := fmt.Sprintf("active question weights sum to %d, must be exactly %d", check.WeightSum, check.Required)
		if len(check.NonPositive) > 0 {
			msg = fmt.Sprintf("questions %s need a positive weight", strings.Join(check.NonPositive, ", "))
		}
		return nil, fault.NewClientErrorWithDetails(msg, map[string]any{
			"weight_sum":   check.WeightSum,
			"required":     check.Required,
			"non_positive": check.NonPositive,
		})
	}

	v, err := s.repo.PublishVersion(ctx, versionID, check.WeightSum, s.now().UTC())
	if err != nil {
		return nil, fault.NewUpstreamError("failed to publish checklist version", err)
	}
	return v, nil
}

// SaveQuestion creates or edits a question of a draft version.
func (s *configServiceImpl) SaveQuestion(ctx context.Context, versionID string, q Question) (Question, error) {
	if strings.TrimSpace(q.Title) == "" {
		return Question{}, fault.NewClientError("question title is required", nil)
	}
	if strings.TrimSpace(q.Category) == "" {
		return Question{}, fault.NewClientError("question category is required", nil)
	}
	if q.Weight <= 0 {
		return Question{}, fault.NewClientError("question weight must be positive", nil)
	}

	if _, err := s.draft(ctx, versionID); err != nil {
		return Question{}, err
	}

	// An edit must target a question of this draft. Questions of other
	// versions, published ones included, are never moved or rewritten.
	if q.ID != "" {
		existing, err := s.repo.QuestionsByVersion(ctx, versionID)
		if err != nil {
			return Question{}, fault.NewUpstreamError("failed to load questions", err)
		}
		if !containsQuestion(existing, q.ID) {
			return Question{}, fault.NewClientError(fmt.Sprintf("question %s does not belong to version %s", q.ID, versionID), fault.ErrNotFound)
		}
	}

	saved, err := s.repo.SaveQuestion(ctx, versionID, q)
	if err != nil {
		if errors.Is(err, fault.ErrUniqueViolation) {
			return Question{}, fault.NewClientError("question order already taken", err)
		}
		if errors.Is(err, fault.ErrNotFound) {
			return Question{}, fault.NewClientError(fmt.Sprintf("question %s does not belong to version %s", q.ID, versionID), err)
		}
		return Question{}, fault.NewUpstreamError("failed to save question", err)
	}
	return saved, nil
}

func containsQuestion(questions []Question, id string) bool {
	for _, q := range questions {
		if q.ID == id {
			return true
		}
	}
	return false
}
