package models

import "time"

// Store is an audited retail location.
type Store struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"nome" json:"name"`
	Slug   string `db:"slug" json:"slug"`
	Active bool   `db:"ativo" json:"active"`
}

type User struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"nome" json:"name"`
	Email string `db:"email" json:"email"`
	Role  string `db:"role" json:"role"` // admin | auditor | gestor
}

// QuestionSetVersion groups the questions of one questionnaire revision.
// A nil PublishedAt marks a draft.
type QuestionSetVersion struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"nome" json:"name"`
	WeightSum   int        `db:"soma_pesos" json:"weight_sum"`
	PublishedAt *time.Time `db:"publicado_em" json:"published_at"`
	Active      bool       `db:"ativo" json:"active"`
}

type Question struct {
	ID        string `db:"id" json:"id"`
	VersionID string `db:"version_id" json:"version_id"`
	Category  string `db:"categoria" json:"category"`
	Title     string `db:"titulo" json:"title"`
	Weight    int    `db:"peso" json:"weight"`
	Order     int    `db:"ordem" json:"order"`
	Active    bool   `db:"ativo" json:"active"`
	Required  bool   `db:"obrigatoria" json:"required"`
}

// Checklist is the persisted record of a finished audit.
type Checklist struct {
	ID             string    `db:"id" json:"id"`
	VersionID      string    `db:"version_id" json:"version_id"`
	StoreID        string    `db:"store_id" json:"store_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	LocalTimestamp string    `db:"data_local" json:"local_timestamp"`
	UTCTimestamp   time.Time `db:"data_utc" json:"utc_timestamp"`
	Lat            *float64  `db:"lat" json:"lat"`
	Lng            *float64  `db:"lng" json:"lng"`
	Accuracy       *float64  `db:"acuracia" json:"accuracy"`
	HasNoGPS       bool      `db:"sem_gps" json:"has_no_gps"`
	ScoreTotal     float64   `db:"score_total" json:"score_total"`
}

// ChecklistSummary is a history row joined with its store name.
type ChecklistSummary struct {
	Checklist
	StoreName string `db:"store_nome" json:"store_name"`
}

type AnswerRow struct {
	ID            string  `db:"id" json:"id"`
	ChecklistID   string  `db:"checklist_id" json:"checklist_id"`
	QuestionID    string  `db:"question_id" json:"question_id"`
	Response      string  `db:"resposta" json:"response"`
	Justification *string `db:"justificativa" json:"justification"`
}

type Media struct {
	ID          string `db:"id" json:"id"`
	AnswerID    string `db:"answer_id" json:"answer_id"`
	FilePath    string `db:"file_path" json:"file_path"`
	ContentType string `db:"content_type" json:"content_type"`
	Width       *int   `db:"width" json:"width"`
	Height      *int   `db:"height" json:"height"`
	Size        int64  `db:"tamanho" json:"size"`
}
