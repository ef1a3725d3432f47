package services

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxJustificationLength is counted in runes.
const MaxJustificationLength = 280

// The auditor's verdict on a question. The zero value means unanswered.
type Response string

const (
	Unset       Response = ""
	Affirmative Response = "SIM"
	Partial     Response = "MEIO"
	Negative    Response = "NAO"
)

// Factor is the share of the question weight the response earns.
func (r Response) Factor() float64 {
	switch r {
	case Affirmative:
		return 1.0
	case Partial:
		return 0.5
	default:
		return 0.0
	}
}

func (r Response) Valid() bool {
	return r == Affirmative || r == Partial || r == Negative
}

func ParseResponse(s string) (Response, error) {
	r := Response(s)
	if s == "" || r.Valid() {
		return r, nil
	}
	return Unset, fmt.Errorf("unknown response %q", s)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseResponse(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// The Question object as consumed by scoring and validation.
type Question struct {
	ID        string `json:"id"`
	VersionID string `json:"version_id,omitempty"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	Weight    int    `json:"weight"`
	Order     int    `json:"order"`
	Active    bool   `json:"active"`
	Required  bool   `json:"required"`
}

// Evidence is a photo attached to an answer.
type Evidence struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

func (e Evidence) Size() int64 {
	return int64(len(e.Data))
}

// Holds the answer for a single question.
type Answer struct {
	QuestionID    string     `json:"question_id"`
	Response      Response   `json:"response"`
	Justification string     `json:"justification,omitempty"`
	Evidence      []Evidence `json:"evidence,omitempty"`
}

type Location struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	AccuracyMeters float64 `json:"accuracy"`
}

func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180 && l.AccuracyMeters >= 0
}

// Holds one checklist session in progress.
//
// A single auditor edits it sequentially; it is not safe for concurrent writers.
type AnswerSet struct {
	StoreID   string             `json:"store_id"`
	Location  *Location          `json:"location,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	Answers   map[string]*Answer `json:"answers"`
}

func NewAnswerSet(storeID string, startedAt time.Time) *AnswerSet {
	return &AnswerSet{
		StoreID:   storeID,
		StartedAt: startedAt,
		Answers:   make(map[string]*Answer),
	}
}

// Answer returns the answer for questionID, or nil.
func (s *AnswerSet) Answer(questionID string) *Answer {
	if s == nil || s.Answers == nil {
		return nil
	}
	return s.Answers[questionID]
}

// ResponseFor returns the response recorded for questionID, Unset if none.
func (s *AnswerSet) ResponseFor(questionID string) Response {
	if a := s.Answer(questionID); a != nil {
		return a.Response
	}
	return Unset
}

func (s *AnswerSet) entry(questionID string) *Answer {
	if s.Answers == nil {
		s.Answers = make(map[string]*Answer)
	}
	a, ok := s.Answers[questionID]
	if !ok {
		a = &Answer{QuestionID: questionID}
		s.Answers[questionID] = a
	}
	return a
}

func (s *AnswerSet) SetResponse(questionID string, r Response) error {
	if !r.Valid() {
		return fmt.Errorf("unknown response %q", r)
	}
	s.entry(questionID).Response = r
	return nil
}

func (s *AnswerSet) ClearResponse(questionID string) {
	if a := s.Answer(questionID); a != nil {
		a.Response = Unset
	}
}

func (s *AnswerSet) SetJustification(questionID, text string) error {
	if n := utf8.RuneCountInString(text); n > MaxJustificationLength {
		return fmt.Errorf("justification has %d characters, limit is %d", n, MaxJustificationLength)
	}
	s.entry(questionID).Justification = text
	return nil
}

func (s *AnswerSet) AddEvidence(questionID string, files ...Evidence) {
	a := s.entry(questionID)
	a.Evidence = append(a.Evidence, files...)
}

func (s *AnswerSet) RemoveEvidence(questionID string, index int) error {
	a := s.Answer(questionID)
	if a == nil || index < 0 || index >= len(a.Evidence) {
		return fmt.Errorf("no evidence at index %d for question %s", index, questionID)
	}
	a.Evidence = append(a.Evidence[:index:index], a.Evidence[index+1:]...)
	return nil
}

func (s *AnswerSet) SetLocation(loc Location) {
	s.Location = &loc
}

func (s *AnswerSet) ClearLocation() {
	s.Location = nil
}
