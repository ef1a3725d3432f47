package services

import (
	"strings"
	"unicode/utf8"
)

// RequiredWeightSum is what the active question weights must add up to
// before a version can be published.
const RequiredWeightSum = 100

// Why a required question blocks submission.
type Reason string

const (
	ReasonUnanswered           Reason = "unanswered"
	ReasonMissingJustification Reason = "missing_justification"
	ReasonJustificationTooLong Reason = "justification_too_long"
)

type Unsatisfied struct {
	QuestionID string `json:"question_id"`
	Title      string `json:"title"`
	Reason     Reason `json:"reason"`
}

type SubmissionCheck struct {
	Unsatisfied []Unsatisfied `json:"unsatisfied"`
}

func (c SubmissionCheck) OK() bool {
	return len(c.Unsatisfied) == 0
}

// FailingIDs lists the unsatisfied question ids in question order.
func (c SubmissionCheck) FailingIDs() []string {
	ids := make([]string, 0, len(c.Unsatisfied))
	for _, u := range c.Unsatisfied {
		ids = append(ids, u.QuestionID)
	}
	return ids
}

// CheckSubmission reports every required question that blocks submission.
// Non-required questions never do, whatever their state.
func CheckSubmission(answers *AnswerSet, questions []Question) SubmissionCheck {
	check := SubmissionCheck{Unsatisfied: []Unsatisfied{}}

	for _, q := range sortedByOrder(questions) {
		if !q.Required {
			continue
		}

		a := answers.Answer(q.ID)
		if a == nil || !a.Response.Valid() {
			check.Unsatisfied = append(check.Unsatisfied, Unsatisfied{QuestionID: q.ID, Title: q.Title, Reason: ReasonUnanswered})
			continue
		}
		if a.Response == Affirmative {
			continue
		}

		switch {
		case strings.TrimSpace(a.Justification) == "":
			check.Unsatisfied = append(check.Unsatisfied, Unsatisfied{QuestionID: q.ID, Title: q.Title, Reason: ReasonMissingJustification})
		case utf8.RuneCountInString(a.Justification) > MaxJustificationLength:
			check.Unsatisfied = append(check.Unsatisfied, Unsatisfied{QuestionID: q.ID, Title: q.Title, Reason: ReasonJustificationTooLong})
		}
	}

	return check
}

func IsSubmittable(answers *AnswerSet, questions []Question) bool {
	return CheckSubmission(answers, questions).OK()
}

type PublishCheck struct {
	WeightSum int `json:"weight_sum"`
	Required  int `json:"required"`
	// Active questions whose weight is not positive.
	NonPositive []string `json:"non_positive"`
}

func (c PublishCheck) OK() bool {
	return c.WeightSum == c.Required && len(c.NonPositive) == 0
}

// CheckPublishable sums the weights of the active questions.
func CheckPublishable(questions []Question) PublishCheck {
	check := PublishCheck{Required: RequiredWeightSum, NonPositive: []string{}}
	for _, q := range questions {
		if !q.Active {
			continue
		}
		check.WeightSum += q.Weight
		if q.Weight <= 0 {
			check.NonPositive = append(check.NonPositive, q.ID)
		}
	}
	return check
}

func IsPublishable(questions []Question) bool {
	return CheckPublishable(questions).OK()
}
