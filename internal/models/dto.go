package models

import "time"

// Insert shapes for the generic datastore. Ids are generated by the caller.

type ChecklistDTO struct {
	ID             string    `db:"id"`
	VersionID      string    `db:"version_id"`
	StoreID        string    `db:"store_id"`
	UserID         string    `db:"user_id"`
	LocalTimestamp string    `db:"data_local"`
	UTCTimestamp   time.Time `db:"data_utc"`
	Lat            *float64  `db:"lat"`
	Lng            *float64  `db:"lng"`
	Accuracy       *float64  `db:"acuracia"`
	HasNoGPS       bool      `db:"sem_gps"`
	ScoreTotal     float64   `db:"score_total"`
	// Written in the same transaction as the checklist row.
	Answers []AnswerDTO `db:"-"`
}

func (d ChecklistDTO) ToModel(id string) any {
	return &Checklist{
		ID:             id,
		VersionID:      d.VersionID,
		StoreID:        d.StoreID,
		UserID:         d.UserID,
		LocalTimestamp: d.LocalTimestamp,
		UTCTimestamp:   d.UTCTimestamp,
		Lat:            d.Lat,
		Lng:            d.Lng,
		Accuracy:       d.Accuracy,
		HasNoGPS:       d.HasNoGPS,
		ScoreTotal:     d.ScoreTotal,
	}
}

type AnswerDTO struct {
	ID            string  `db:"id"`
	ChecklistID   string  `db:"checklist_id"`
	QuestionID    string  `db:"question_id"`
	Response      string  `db:"resposta"`
	Justification *string `db:"justificativa"`
}

func (d AnswerDTO) ToModel(id string) any {
	return &AnswerRow{
		ID:            id,
		ChecklistID:   d.ChecklistID,
		QuestionID:    d.QuestionID,
		Response:      d.Response,
		Justification: d.Justification,
	}
}

type MediaDTO struct {
	AnswerID    string `db:"answer_id"`
	FilePath    string `db:"file_path"`
	ContentType string `db:"content_type"`
	Width       *int   `db:"width"`
	Height      *int   `db:"height"`
	Size        int64  `db:"tamanho"`
}

func (d MediaDTO) ToModel(id string) any {
	return &Media{
		ID:          id,
		AnswerID:    d.AnswerID,
		FilePath:    d.FilePath,
		ContentType: d.ContentType,
		Width:       d.Width,
		Height:      d.Height,
		Size:        d.Size,
	}
}

// QuestionDTO doubles as the update shape; pointer fields are written only when set.
type QuestionDTO struct {
	ID        string `db:"id"`
	VersionID string `db:"version_id"`
	Category  string `db:"categoria"`
	Title     string `db:"titulo"`
	Weight    *int   `db:"peso"`
	Order     *int   `db:"ordem"`
	Active    *bool  `db:"ativo"`
	Required  *bool  `db:"obrigatoria"`
}

func (d QuestionDTO) ToModel(id string) any {
	q := &Question{ID: id, VersionID: d.VersionID, Category: d.Category, Title: d.Title}
	if d.Weight != nil {
		q.Weight = *d.Weight
	}
	if d.Order != nil {
		q.Order = *d.Order
	}
	if d.Active != nil {
		q.Active = *d.Active
	}
	if d.Required != nil {
		q.Required = *d.Required
	}
	return q
}

type VersionPublishDTO struct {
	VersionID   string     `db:"-"`
	WeightSum   *int       `db:"soma_pesos"`
	PublishedAt *time.Time `db:"publicado_em"`
	Active      *bool      `db:"ativo"`
}

func (d VersionPublishDTO) ToModel(id string) any {
	v := &QuestionSetVersion{ID: id, PublishedAt: d.PublishedAt}
	if d.WeightSum != nil {
		v.WeightSum = *d.WeightSum
	}
	if d.Active != nil {
		v.Active = *d.Active
	}
	return v
}
