package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulexconde/storecheck/internal/models"
	"github.com/paulexconde/storecheck/internal/pkg/workerpool"
	"github.com/paulexconde/storecheck/pkg/fault"
)

// PersistenceGateway stores submitted checklists and their evidence.
type PersistenceGateway interface {
	// Writes the checklist row and its answer rows.
	SubmitChecklist(ctx context.Context, record SubmissionRecord) (string, error)
	UploadEvidence(ctx context.Context, checklistID string, upload EvidenceUpload) (string, error)
	// Removes a checklist whose evidence could not be stored.
	DiscardChecklist(ctx context.Context, checklistID string) error
}

type SubmissionMeta struct {
	ChecklistID string
	VersionID   string
	UserID      string
	SubmittedAt time.Time
}

// EvidenceUpload is one photo bound to its persisted answer.
type EvidenceUpload struct {
	QuestionID string
	AnswerID   string
	Index      int
	ObjectKey  string
	Evidence   Evidence
}

type SubmissionAnswer struct {
	Row      models.AnswerDTO
	Evidence []EvidenceUpload
}

// SubmissionRecord is the canonical shape handed to the persistence gateway.
type SubmissionRecord struct {
	Checklist models.ChecklistDTO
	Answers   []SubmissionAnswer
}

// Uploads flattens the evidence of every answer.
func (r SubmissionRecord) Uploads() []EvidenceUpload {
	var out []EvidenceUpload
	for _, a := range r.Answers {
		out = append(out, a.Evidence...)
	}
	return out
}

// Assemble maps a session onto the persisted record. It does not validate;
// callers check CheckSubmission first. Only answers to the scored questions
// are kept, so the rows always agree with score. Answer ids derive from the
// checklist id, so assembling the same session twice yields the same record.
func Assemble(answers *AnswerSet, questions []Question, score ScoreResult, meta SubmissionMeta) SubmissionRecord {
	checklist := models.ChecklistDTO{
		ID:             meta.ChecklistID,
		VersionID:      meta.VersionID,
		StoreID:        answers.StoreID,
		UserID:         meta.UserID,
		LocalTimestamp: meta.SubmittedAt.Format(time.RFC3339),
		UTCTimestamp:   meta.SubmittedAt.UTC(),
		HasNoGPS:       answers.Location == nil,
		ScoreTotal:     score.OverallPercent,
	}
	if loc := answers.Location; loc != nil {
		lat, lng, acc := loc.Lat, loc.Lng, loc.AccuracyMeters
		checklist.Lat = &lat
		checklist.Lng = &lng
		checklist.Accuracy = &acc
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		if answers.ResponseFor(q.ID).Valid() {
			ids = append(ids, q.ID)
		}
	}
	sort.Strings(ids)

	entries := make([]SubmissionAnswer, 0, len(ids))
	for _, qid := range ids {
		a := answers.Answers[qid]
		answerID := answerIDFor(meta.ChecklistID, qid)

		row := models.AnswerDTO{
			ID:          answerID,
			ChecklistID: meta.ChecklistID,
			QuestionID:  qid,
			Response:    string(a.Response),
		}
		if a.Justification != "" {
			j := a.Justification
			row.Justification = &j
		}

		evidence := make([]EvidenceUpload, 0, len(a.Evidence))
		for i, e := range a.Evidence {
			evidence = append(evidence, EvidenceUpload{
				QuestionID: qid,
				AnswerID:   answerID,
				Index:      i,
				ObjectKey:  objectKey(meta.UserID, meta.ChecklistID, qid, i, e.Name),
				Evidence:   e,
			})
		}

		entries = append(entries, SubmissionAnswer{Row: row, Evidence: evidence})
	}

	return SubmissionRecord{Checklist: checklist, Answers: entries}
}

func answerIDFor(checklistID, questionID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("checklist:"+checklistID+"/question:"+questionID)).String()
}

func objectKey(userID, checklistID, questionID string, index int, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("%s/%s/%s_%d%s", userID, checklistID, questionID, index, ext)
}

type SubmitRequest struct {
	Answers   *AnswerSet
	Questions []Question
	VersionID string
	UserID    string
}

type SubmitResult struct {
	ChecklistID  string      `json:"checklist_id"`
	Score        ScoreResult `json:"score"`
	EvidenceURLs []string    `json:"evidence_urls"`
}

type SubmissionOptions struct {
	UploadWorkers int
	UploadRetries int
	RetryDelay    time.Duration
}

// Handles finalizing a checklist session.
type SubmissionService interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

type submissionServiceImpl struct {
	gateway PersistenceGateway
	opts    SubmissionOptions
	now     func() time.Time
	newID   func() string
}

func NewSubmissionService(gateway PersistenceGateway, opts SubmissionOptions) SubmissionService {
	if opts.UploadWorkers < 1 {
		opts.UploadWorkers = 4
	}
	if opts.UploadRetries < 1 {
		opts.UploadRetries = 1
	}
	return &submissionServiceImpl{
		gateway: gateway,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Submit succeeds only when the record and every photo are stored. On an
// upload failure the record is discarded and the caller keeps its AnswerSet
// to retry from scratch.
func (s *submissionServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.Answers == nil {
		return nil, fault.NewClientError("missing checklist answers", nil)
	}
	if req.UserID == "" {
		return nil, fault.NewClientError("cannot submit checklist", fault.ErrUnauthenticated)
	}
	if req.VersionID == "" {
		return nil, fault.NewClientError("checklist version not found", fault.ErrNotFound)
	}

	if check := CheckSubmission(req.Answers, req.Questions); !check.OK() {
		return nil, fault.NewClientErrorWithDetails("required questions are not satisfied", map[string]any{
			"unsatisfied": check.Unsatisfied,
		})
	}

	score := ComputeScore(req.Answers, req.Questions)
	record := Assemble(req.Answers, req.Questions, score, SubmissionMeta{
		ChecklistID: s.newID(),
		VersionID:   req.VersionID,
		UserID:      req.UserID,
		SubmittedAt: s.now(),
	})

	checklistID, err := s.gateway.SubmitChecklist(ctx, record)
	if err != nil {
		return nil, fault.NewUpstreamError("failed to save checklist", err)
	}

	urls, err := s.uploadAll(ctx, checklistID, record.Uploads())
	if err != nil {
		if derr := s.gateway.DiscardChecklist(context.WithoutCancel(ctx), checklistID); derr != nil {
			log.Printf("discard checklist %s after failed upload: %v", checklistID, derr)
		}
		return nil, fault.NewUpstreamError("failed to upload evidence", err)
	}

	return &SubmitResult{
		ChecklistID:  checklistID,
		Score:        score,
		EvidenceURLs: urls,
	}, nil
}

// uploadAll fans uploads out to a worker pool and waits for every outcome.
func (s *submissionServiceImpl) uploadAll(ctx context.Context, checklistID string, uploads []EvidenceUpload) ([]string, error) {
	urls := make([]string, len(uploads))
	if len(uploads) == 0 {
		return urls, nil
	}

	pool := workerpool.NewWorkerPool(ctx, s.opts.UploadWorkers, len(uploads))

	for i, up := range uploads {
		i, up := i, up
		job := workerpool.WithRetry(s.opts.UploadRetries, s.opts.RetryDelay, func(ctx context.Context) error {
			url, err := s.gateway.UploadEvidence(ctx, checklistID, up)
			if err != nil {
				return fmt.Errorf("question %s photo %d: %w", up.QuestionID, up.Index, err)
			}
			urls[i] = url
			return nil
		})

		if err := pool.Submit(job); err != nil {
			pool.Wait()
			return nil, err
		}
	}

	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
