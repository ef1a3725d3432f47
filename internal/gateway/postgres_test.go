package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/paulexconde/storecheck/internal/models"
	"github.com/paulexconde/storecheck/internal/services"
	"github.com/paulexconde/storecheck/pkg/fault"
)

type memoryBlobs struct {
	puts    []string
	deleted []string
}

func (b *memoryBlobs) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	b.puts = append(b.puts, key)
	return "/media/" + key, nil
}

func (b *memoryBlobs) Delete(ctx context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	return nil
}

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock, *memoryBlobs) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	blobs := &memoryBlobs{}
	return NewPostgres(sqlx.NewDb(db, "postgres"), blobs), mock, blobs
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSubmitChecklist_WritesAnswersInSameTransaction(t *testing.T) {
	p, mock, _ := newMockPostgres(t)

	justification := "sem estoque"
	record := services.SubmissionRecord{
		Checklist: models.ChecklistDTO{
			ID: "c1", VersionID: "v1", StoreID: "s1", UserID: "u1",
			UTCTimestamp: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), HasNoGPS: true, ScoreTotal: 75,
		},
		Answers: []services.SubmissionAnswer{
			{Row: models.AnswerDTO{ID: "a1", ChecklistID: "c1", QuestionID: "1", Response: "NAO", Justification: &justification}},
			{Row: models.AnswerDTO{ID: "a2", ChecklistID: "c1", QuestionID: "2", Response: "SIM"}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO checklists`).
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
	mock.ExpectExec(`INSERT INTO answers`).
		WithArgs("a1", "c1", "1", "NAO", "sem estoque").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO answers`).
		WithArgs("a2", "c1", "2", "SIM", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := p.SubmitChecklist(context.Background(), record)
	if err != nil {
		t.Fatalf("SubmitChecklist() error = %v", err)
	}
	if id != "c1" {
		t.Errorf("id = %q, want c1", id)
	}
	expectationsMet(t, mock)
}

func TestSubmitChecklist_AnswerFailureRollsBack(t *testing.T) {
	p, mock, _ := newMockPostgres(t)

	record := services.SubmissionRecord{
		Checklist: models.ChecklistDTO{ID: "c1", VersionID: "v1", StoreID: "s1", UserID: "u1"},
		Answers: []services.SubmissionAnswer{
			{Row: models.AnswerDTO{ID: "a1", ChecklistID: "c1", QuestionID: "1", Response: "SIM"}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO checklists`).
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
	mock.ExpectExec(`INSERT INTO answers`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := p.SubmitChecklist(context.Background(), record); err == nil {
		t.Fatal("SubmitChecklist() error = nil, want error")
	}
	expectationsMet(t, mock)
}

func TestDiscardChecklist_RemovesRowsThenObjects(t *testing.T) {
	p, mock, blobs := newMockPostgres(t)

	mock.ExpectQuery(`SELECT m.file_path FROM media`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("u1/c1/1_0.jpg").AddRow("u1/c1/2_0.jpg"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM media`).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM answers`).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM checklists WHERE id`).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := p.DiscardChecklist(context.Background(), "c1"); err != nil {
		t.Fatalf("DiscardChecklist() error = %v", err)
	}
	if len(blobs.deleted) != 2 || blobs.deleted[0] != "u1/c1/1_0.jpg" {
		t.Errorf("deleted objects = %v", blobs.deleted)
	}
	expectationsMet(t, mock)
}

func TestUploadEvidence_MediaFailureRemovesObject(t *testing.T) {
	p, mock, blobs := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO media`).
		ExpectQuery().
		WillReturnError(errors.New("answer missing"))
	mock.ExpectRollback()

	_, err := p.UploadEvidence(context.Background(), "c1", services.EvidenceUpload{
		QuestionID: "1",
		AnswerID:   "a1",
		ObjectKey:  "u1/c1/1_0.jpg",
		Evidence:   services.Evidence{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")},
	})
	if err == nil {
		t.Fatal("UploadEvidence() error = nil, want error")
	}
	if len(blobs.puts) != 1 || len(blobs.deleted) != 1 || blobs.deleted[0] != "u1/c1/1_0.jpg" {
		t.Errorf("puts = %v, deleted = %v", blobs.puts, blobs.deleted)
	}
	expectationsMet(t, mock)
}

func TestPublishVersion_DeactivatesOthersFirst(t *testing.T) {
	p, mock, _ := newMockPostgres(t)
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE checklist_versions SET ativo = false`).
		WithArgs("v2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(`UPDATE checklist_versions SET soma_pesos`).
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, nome, soma_pesos, publicado_em, ativo FROM checklist_versions`).
		WithArgs("v2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome", "soma_pesos", "publicado_em", "ativo"}).
			AddRow("v2", "Abril", 100, at, true))
	mock.ExpectCommit()

	v, err := p.PublishVersion(context.Background(), "v2", 100, at)
	if err != nil {
		t.Fatalf("PublishVersion() error = %v", err)
	}
	if !v.Active || v.WeightSum != 100 || v.PublishedAt == nil || !v.PublishedAt.Equal(at) {
		t.Errorf("version = %+v", v)
	}
	expectationsMet(t, mock)
}

func TestSaveQuestion_ScopedToVersion(t *testing.T) {
	q := services.Question{ID: "q1", Category: "Loja", Title: "Pontas", Weight: 20, Order: 2, Active: true, Required: true}

	t.Run("question of another version", func(t *testing.T) {
		p, mock, _ := newMockPostgres(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT version_id FROM questions WHERE id`).
			WithArgs("q1").
			WillReturnRows(sqlmock.NewRows([]string{"version_id"}).AddRow("live"))
		mock.ExpectRollback()

		_, err := p.SaveQuestion(context.Background(), "draft", q)
		if !errors.Is(err, fault.ErrNotFound) {
			t.Errorf("SaveQuestion() error = %v, want ErrNotFound", err)
		}
		expectationsMet(t, mock)
	})

	t.Run("unknown question", func(t *testing.T) {
		p, mock, _ := newMockPostgres(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT version_id FROM questions WHERE id`).
			WithArgs("q1").
			WillReturnRows(sqlmock.NewRows([]string{"version_id"}))
		mock.ExpectRollback()

		_, err := p.SaveQuestion(context.Background(), "draft", q)
		if !errors.Is(err, fault.ErrNotFound) {
			t.Errorf("SaveQuestion() error = %v, want ErrNotFound", err)
		}
		expectationsMet(t, mock)
	})

	t.Run("question of the same version", func(t *testing.T) {
		p, mock, _ := newMockPostgres(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT version_id FROM questions WHERE id`).
			WithArgs("q1").
			WillReturnRows(sqlmock.NewRows([]string{"version_id"}).AddRow("draft"))
		mock.ExpectPrepare(`UPDATE questions SET`).
			ExpectExec().
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id, version_id, categoria, titulo, peso, ordem, ativo, obrigatoria FROM questions`).
			WithArgs("q1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "version_id", "categoria", "titulo", "peso", "ordem", "ativo", "obrigatoria"}).
				AddRow("q1", "draft", "Loja", "Pontas", 20, 2, true, true))
		mock.ExpectCommit()

		saved, err := p.SaveQuestion(context.Background(), "draft", q)
		if err != nil {
			t.Fatalf("SaveQuestion() error = %v", err)
		}
		if saved.VersionID != "draft" || saved.Weight != 20 {
			t.Errorf("saved = %+v", saved)
		}
		expectationsMet(t, mock)
	})
}
