package gateway

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/paulexconde/storecheck/internal/models"
	"github.com/paulexconde/storecheck/internal/pkg/paginator"
	"github.com/paulexconde/storecheck/internal/pkg/store"
	"github.com/paulexconde/storecheck/internal/services"
	"github.com/paulexconde/storecheck/pkg/fault"
)

//go:embed schema.sql
var schema string

// Postgres backs every collaborator the services need.
type Postgres struct {
	db         *sqlx.DB
	blobs      BlobStore
	checklists store.Datastorer[models.Checklist]
	media      store.Datastorer[models.Media]
	questions  store.Datastorer[models.Question]
	versions   store.Datastorer[models.QuestionSetVersion]
	stores     store.Datastorer[models.Store]
	scores     store.Datastorer[services.ScoreRow]
	answerStat store.Datastorer[services.AnswerStat]
	history    store.Datastorer[models.ChecklistSummary]
}

func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, errors.New("database url is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func NewPostgres(db *sqlx.DB, blobs BlobStore) *Postgres {
	p := &Postgres{
		db:         db,
		blobs:      blobs,
		checklists: store.NewDataStore[models.Checklist](db, "checklists"),
		media:      store.NewDataStore[models.Media](db, "media"),
		questions:  store.NewDataStore[models.Question](db, "questions"),
		versions:   store.NewDataStore[models.QuestionSetVersion](db, "checklist_versions"),
		stores:     store.NewDataStore[models.Store](db, "stores"),
		scores:     store.NewDataStore[services.ScoreRow](db, "checklists"),
		answerStat: store.NewDataStore[services.AnswerStat](db, "answers"),
		history:    store.NewDataStore[models.ChecklistSummary](db, "checklists"),
	}

	p.checklists.SetHooks(store.Hooks{
		PostSave:  []func(ctx context.Context, tx *sqlx.Tx, data store.DTO, model any, isNew bool) error{insertAnswers},
		PreDelete: []func(ctx context.Context, tx *sqlx.Tx, id string) error{deleteChecklistChildren},
	})
	p.questions.SetHooks(store.Hooks{
		PreSave: []func(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error{guardQuestionVersion},
	})
	p.versions.SetHooks(store.Hooks{
		PreSave: []func(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error{deactivateOtherVersions},
	})

	return p
}

// Migrate creates the schema when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// History pages through checklist summaries.
func (p *Postgres) History() paginator.Paginator[models.ChecklistSummary] {
	return paginator.NewPaginator(p.history)
}

func insertAnswers(ctx context.Context, tx *sqlx.Tx, data store.DTO, model any, isNew bool) error {
	dto, ok := data.(models.ChecklistDTO)
	if !ok || !isNew {
		return nil
	}
	for _, a := range dto.Answers {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO answers (id, checklist_id, question_id, resposta, justificativa)
VALUES (:id, :checklist_id, :question_id, :resposta, :justificativa)`, a)
		if err != nil {
			return fmt.Errorf("save answer for question %s: %w", a.QuestionID, err)
		}
	}
	return nil
}

func deleteChecklistChildren(ctx context.Context, tx *sqlx.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE answer_id IN (SELECT id FROM answers WHERE checklist_id = $1)`, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE checklist_id = $1`, id)
	return err
}

// deactivateOtherVersions keeps a single active version; it runs in the
// transaction that activates the new one.
func deactivateOtherVersions(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error {
	dto, ok := data.(models.VersionPublishDTO)
	if !ok || dto.Active == nil || !*dto.Active {
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE checklist_versions SET ativo = false WHERE ativo = true AND id <> $1`, dto.VersionID)
	return err
}

// guardQuestionVersion scopes a question update to the version it already
// belongs to. The row is locked for the rest of the transaction.
func guardQuestionVersion(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error {
	dto, ok := data.(models.QuestionDTO)
	if !ok || isNew {
		return nil
	}
	var current string
	err := tx.GetContext(ctx, &current, `SELECT version_id FROM questions WHERE id = $1 FOR UPDATE`, dto.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fault.ErrNotFound
	}
	if err != nil {
		return err
	}
	if current != dto.VersionID {
		return fault.ErrNotFound
	}
	return nil
}

// --- services.ReferenceDataProvider ---

func (p *Postgres) activeVersion(ctx context.Context) (*models.QuestionSetVersion, error) {
	v, err := p.versions.Get(ctx, `SELECT id, nome, soma_pesos, publicado_em, ativo
FROM checklist_versions WHERE ativo = true LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("active checklist version: %w", err)
	}
	return v, nil
}

func (p *Postgres) ActiveQuestions(ctx context.Context) ([]services.Question, error) {
	v, err := p.activeVersion(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := p.questions.Select(ctx, `SELECT id, version_id, categoria, titulo, peso, ordem, ativo, obrigatoria
FROM questions WHERE version_id = $1 AND ativo = true ORDER BY ordem`, v.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return toServiceQuestions(rows), nil
}

func (p *Postgres) Stores(ctx context.Context) ([]models.Store, error) {
	rows, err := p.stores.Select(ctx, `SELECT id, nome, slug, ativo FROM stores WHERE ativo = true ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return rows, nil
}

// --- services.PersistenceGateway ---

func (p *Postgres) SubmitChecklist(ctx context.Context, record services.SubmissionRecord) (string, error) {
	dto := record.Checklist
	dto.Answers = make([]models.AnswerDTO, 0, len(record.Answers))
	for _, a := range record.Answers {
		dto.Answers = append(dto.Answers, a.Row)
	}

	created, err := p.checklists.Create(ctx, dto)
	if err != nil {
		return "", err
	}
	return created.(*models.Checklist).ID, nil
}

func (p *Postgres) UploadEvidence(ctx context.Context, checklistID string, up services.EvidenceUpload) (string, error) {
	url, err := p.blobs.Put(ctx, up.ObjectKey, up.Evidence.ContentType, up.Evidence.Data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", up.ObjectKey, err)
	}

	dto := models.MediaDTO{
		AnswerID:    up.AnswerID,
		FilePath:    up.ObjectKey,
		ContentType: up.Evidence.ContentType,
		Size:        up.Evidence.Size(),
	}
	if up.Evidence.Width > 0 && up.Evidence.Height > 0 {
		w, h := up.Evidence.Width, up.Evidence.Height
		dto.Width, dto.Height = &w, &h
	}

	if _, err := p.media.Create(ctx, dto); err != nil {
		if derr := p.blobs.Delete(context.WithoutCancel(ctx), up.ObjectKey); derr != nil {
			log.Printf("remove orphan object %s: %v", up.ObjectKey, derr)
		}
		return "", fmt.Errorf("save media record: %w", err)
	}
	return url, nil
}

func (p *Postgres) DiscardChecklist(ctx context.Context, checklistID string) error {
	keys, err := p.mediaKeys(ctx, checklistID)
	if err != nil {
		return err
	}
	if err := p.checklists.Delete(ctx, checklistID); err != nil {
		return err
	}
	for _, key := range keys {
		if err := p.blobs.Delete(ctx, key); err != nil {
			log.Printf("remove object %s: %v", key, err)
		}
	}
	return nil
}

func (p *Postgres) mediaKeys(ctx context.Context, checklistID string) ([]string, error) {
	var keys []string
	err := p.db.SelectContext(ctx, &keys, `SELECT m.file_path FROM media m
JOIN answers a ON a.id = m.answer_id WHERE a.checklist_id = $1`, checklistID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return keys, nil
}

// --- services.QuestionSetRepository ---

func (p *Postgres) Version(ctx context.Context, versionID string) (*models.QuestionSetVersion, error) {
	return p.versions.Get(ctx, `SELECT id, nome, soma_pesos, publicado_em, ativo
FROM checklist_versions WHERE id = $1`, versionID)
}

func (p *Postgres) QuestionsByVersion(ctx context.Context, versionID string) ([]services.Question, error) {
	rows, err := p.questions.Select(ctx, `SELECT id, version_id, categoria, titulo, peso, ordem, ativo, obrigatoria
FROM questions WHERE version_id = $1 ORDER BY ordem`, versionID)
	if err != nil {
		return nil, err
	}
	return toServiceQuestions(rows), nil
}

func (p *Postgres) SaveQuestion(ctx context.Context, versionID string, q services.Question) (services.Question, error) {
	dto := models.QuestionDTO{
		ID:        q.ID,
		VersionID: versionID,
		Category:  q.Category,
		Title:     q.Title,
		Weight:    &q.Weight,
		Order:     &q.Order,
		Active:    &q.Active,
		Required:  &q.Required,
	}

	var (
		saved any
		err   error
	)
	if q.ID == "" {
		dto.ID = uuid.NewString()
		saved, err = p.questions.Create(ctx, dto)
	} else {
		saved, err = p.questions.Update(ctx, q.ID, dto)
	}
	if err != nil {
		return services.Question{}, err
	}

	out := toServiceQuestions([]models.Question{*saved.(*models.Question)})
	return out[0], nil
}

func (p *Postgres) PublishVersion(ctx context.Context, versionID string, weightSum int, at time.Time) (*models.QuestionSetVersion, error) {
	active := true
	updated, err := p.versions.Update(ctx, versionID, models.VersionPublishDTO{
		VersionID:   versionID,
		WeightSum:   &weightSum,
		PublishedAt: &at,
		Active:      &active,
	})
	if err != nil {
		return nil, err
	}
	return updated.(*models.QuestionSetVersion), nil
}

// --- services.DashboardStore ---

func (p *Postgres) ScoreRows(ctx context.Context, from, to time.Time) ([]services.ScoreRow, error) {
	return p.scores.Select(ctx, `SELECT c.store_id, s.nome AS store_nome, c.score_total
FROM checklists c JOIN stores s ON s.id = c.store_id
WHERE c.data_utc >= $1 AND c.data_utc < $2`, from, to)
}

func (p *Postgres) AnswerStats(ctx context.Context, from, to time.Time) ([]services.AnswerStat, error) {
	return p.answerStat.Select(ctx, `SELECT a.question_id, q.titulo, q.categoria, a.resposta
FROM answers a
JOIN checklists c ON c.id = a.checklist_id
JOIN questions q ON q.id = a.question_id
WHERE c.data_utc >= $1 AND c.data_utc < $2`, from, to)
}

func toServiceQuestions(rows []models.Question) []services.Question {
	out := make([]services.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, services.Question{
			ID:        r.ID,
			VersionID: r.VersionID,
			Category:  r.Category,
			Title:     r.Title,
			Weight:    r.Weight,
			Order:     r.Order,
			Active:    r.Active,
			Required:  r.Required,
		})
	}
	return out
}

var (
	_ services.ReferenceDataProvider = (*Postgres)(nil)
	_ services.PersistenceGateway    = (*Postgres)(nil)
	_ services.QuestionSetRepository = (*Postgres)(nil)
	_ services.DashboardStore        = (*Postgres)(nil)
)
