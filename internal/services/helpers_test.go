package services

import "time"

var testStart = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// answerAll answers every question with r.
func answerAll(questions []Question, r Response) *AnswerSet {
	set := NewAnswerSet("store-1", testStart)
	for _, q := range questions {
		set.SetResponse(q.ID, r)
	}
	return set
}
