package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulexconde/storecheck/internal/services"
	"github.com/paulexconde/storecheck/pkg/fault"
)

type handlers struct {
	deps Deps
}

// checklistPayload is a checklist session as the mobile client holds it.
type checklistPayload struct {
	VersionID string             `json:"version_id"`
	StoreID   string             `json:"store_id" binding:"required"`
	StoreName string             `json:"store_name"`
	StartedAt time.Time          `json:"started_at"`
	Location  *services.Location `json:"location"`
	Answers   []services.Answer  `json:"answers"`
}

// session rebuilds the AnswerSet. The location notice is empty when a fix was kept.
func (h *handlers) session(c *gin.Context, p checklistPayload) (*services.AnswerSet, string, error) {
	started := p.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	set := services.NewAnswerSet(p.StoreID, started)

	for _, a := range p.Answers {
		if a.QuestionID == "" {
			return nil, "", fault.NewClientError("answer without question_id", nil)
		}
		if a.Response != services.Unset {
			if err := set.SetResponse(a.QuestionID, a.Response); err != nil {
				return nil, "", fault.NewClientError("invalid response", err)
			}
		}
		if a.Justification != "" {
			if err := set.SetJustification(a.QuestionID, a.Justification); err != nil {
				return nil, "", fault.NewClientError("invalid justification", err)
			}
		}
		set.AddEvidence(a.QuestionID, a.Evidence...)
	}

	outcome := services.AcquireLocation(c.Request.Context(), services.StaticLocation{Fix: p.Location}, h.deps.LocationTimeout, h.deps.LocationMaxAge)
	if outcome.Location != nil {
		set.SetLocation(*outcome.Location)
	}
	return set, outcome.Notice, nil
}

// questionsFor returns the active questions of a published version, or the
// reference snapshot when the client is running on sample data. Older
// published versions are accepted so a session keeps the set it started with.
func (h *handlers) questionsFor(c *gin.Context, versionID string) ([]services.Question, error) {
	if versionID == "" {
		return h.deps.Reference.Load(c.Request.Context()).Questions, nil
	}

	v, err := h.deps.Questions.Version(c.Request.Context(), versionID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return nil, fault.NewClientError("checklist version not found", err)
		}
		return nil, fault.NewUpstreamError("failed to load checklist version", err)
	}
	if v.PublishedAt == nil {
		return nil, fault.NewClientError("checklist version is not published", nil)
	}

	all, err := h.deps.Questions.QuestionsByVersion(c.Request.Context(), versionID)
	if err != nil {
		return nil, fault.NewUpstreamError("failed to load questions", err)
	}
	if len(all) == 0 {
		return nil, fault.NewClientError("checklist version not found", fault.ErrNotFound)
	}
	active := make([]services.Question, 0, len(all))
	for _, q := range all {
		if q.Active {
			active = append(active, q)
		}
	}
	return active, nil
}

func (h *handlers) reference(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Reference.Load(c.Request.Context()))
}

func (h *handlers) bind(c *gin.Context) (checklistPayload, *services.AnswerSet, []services.Question, string, bool) {
	var p checklistPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, fault.NewClientError("invalid checklist payload", err))
		return p, nil, nil, "", false
	}
	set, notice, err := h.session(c, p)
	if err != nil {
		writeError(c, err)
		return p, nil, nil, "", false
	}
	questions, err := h.questionsFor(c, p.VersionID)
	if err != nil {
		writeError(c, err)
		return p, nil, nil, "", false
	}
	if err := checkAnswered(set, questions); err != nil {
		writeError(c, err)
		return p, nil, nil, "", false
	}
	return p, set, questions, notice, true
}

// checkAnswered rejects answers to questions outside the session's set.
func checkAnswered(set *services.AnswerSet, questions []services.Question) error {
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	var unknown []string
	for id := range set.Answers {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fault.NewClientErrorWithDetails("answers reference unknown questions", map[string]any{
		"unknown_questions": unknown,
	})
}

// score returns the live score and what still blocks submission.
func (h *handlers) score(c *gin.Context) {
	_, set, questions, _, ok := h.bind(c)
	if !ok {
		return
	}
	check := services.CheckSubmission(set, questions)
	c.JSON(http.StatusOK, gin.H{
		"score":       services.ComputeScore(set, questions),
		"submittable": check.OK(),
		"unsatisfied": check.Unsatisfied,
	})
}

func (h *handlers) submit(c *gin.Context) {
	p, set, questions, notice, ok := h.bind(c)
	if !ok {
		return
	}

	res, err := h.deps.Submission.Submit(c.Request.Context(), services.SubmitRequest{
		Answers:   set,
		Questions: questions,
		VersionID: p.VersionID,
		UserID:    claimsFrom(c).UID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"checklist_id":    res.ChecklistID,
		"score":           res.Score,
		"evidence_urls":   res.EvidenceURLs,
		"has_no_gps":      set.Location == nil,
		"location_notice": notice,
	})
}

func (h *handlers) report(c *gin.Context) {
	p, set, questions, _, ok := h.bind(c)
	if !ok {
		return
	}

	score := services.ComputeScore(set, questions)
	report := services.BuildReport(score, set, questions, services.ReportMeta{
		StoreName:   p.StoreName,
		AuditorName: claimsFrom(c).Name,
		SubmittedAt: time.Now(),
		Location:    set.Location,
	})

	var buf bytes.Buffer
	if err := (services.TextSink{W: &buf}).Render(c.Request.Context(), report); err != nil {
		writeError(c, fault.NewInternalError("failed to render report", err))
		return
	}
	c.Header("X-Share-Title", url.PathEscape(report.ShareTitle))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (h *handlers) history(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	filter := services.HistoryFilter(c.DefaultQuery("filter", string(services.FilterAll)))

	res, err := h.deps.History.List(c.Request.Context(), claimsFrom(c).UID, filter, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) dashboard(c *gin.Context) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, now.Location())
		if err != nil {
			writeError(c, fault.NewClientError("invalid from date", err))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, now.Location())
		if err != nil {
			writeError(c, fault.NewClientError("invalid to date", err))
			return
		}
		// inclusive end day
		to = t.AddDate(0, 0, 1)
	}

	d, err := h.deps.Dashboard.Summary(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) checkVersion(c *gin.Context) {
	check, err := h.deps.Config.Check(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"publishable": check.OK(),
		"check":       check,
	})
}

func (h *handlers) publishVersion(c *gin.Context) {
	v, err := h.deps.Config.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) saveQuestion(c *gin.Context) {
	var q services.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		writeError(c, fault.NewClientError("invalid question payload", err))
		return
	}
	saved, err := h.deps.Config.SaveQuestion(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
