package services

import (
	"context"
	"log"

	"github.com/paulexconde/storecheck/internal/models"
	"golang.org/x/sync/errgroup"
)

// ReferenceDataProvider supplies the active question set and the store list.
type ReferenceDataProvider interface {
	ActiveQuestions(ctx context.Context) ([]Question, error)
	Stores(ctx context.Context) ([]models.Store, error)
}

// ReferenceData is the snapshot a checklist session works against.
type ReferenceData struct {
	VersionID string         `json:"version_id"`
	Questions []Question     `json:"questions"`
	Stores    []models.Store `json:"stores"`
	// Degraded is set when the built-in sample data replaced the provider's.
	Degraded bool   `json:"degraded"`
	Notice   string `json:"notice,omitempty"`
}

type ReferenceService interface {
	Load(ctx context.Context) ReferenceData
}

type referenceServiceImpl struct {
	provider ReferenceDataProvider
}

func NewReferenceService(provider ReferenceDataProvider) ReferenceService {
	return &referenceServiceImpl{provider: provider}
}

// Load fetches questions and stores together. Any failure falls back to the
// sample set so the workflow stays usable offline.
func (s *referenceServiceImpl) Load(ctx context.Context) ReferenceData {
	var (
		questions []Question
		stores    []models.Store
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = s.provider.ActiveQuestions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stores, err = s.provider.Stores(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("reference data unavailable, using sample data: %v", err)
		return ReferenceData{
			Questions: SampleQuestions(),
			Stores:    SampleStores(),
			Degraded:  true,
			Notice:    "Dados de demonstração: não foi possível carregar perguntas e lojas",
		}
	}

	active := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Active {
			active = append(active, q)
		}
	}

	data := ReferenceData{
		Questions: sortedByOrder(active),
		Stores:    stores,
	}
	if len(data.Questions) > 0 {
		data.VersionID = data.Questions[0].VersionID
	}
	return data
}

// SampleQuestions is the built-in question set used in degraded mode.
func SampleQuestions() []Question {
	return []Question{
		{ID: "1", Category: "Loja", Title: "Produtos da campanha disponíveis com amostra, preço e estoque?", Weight: 25, Order: 1, Active: true, Required: true},
		{ID: "2", Category: "Loja", Title: "Pontas de gôndola abastecidas e com cartazes?", Weight: 20, Order: 2, Active: true, Required: true},
		{ID: "3", Category: "Loja", Title: "Ilhas promocionais abastecidas e com cartazes?", Weight: 25, Order: 3, Active: true, Required: true},
		{ID: "4", Category: "Loja", Title: "Impressoras de etiquetas/cartazes funcionando?", Weight: 15, Order: 4, Active: true, Required: false},
		{ID: "5", Category: "Atendimento", Title: "Funcionários uniformizados e identificados?", Weight: 15, Order: 5, Active: true, Required: true},
	}
}

func SampleStores() []models.Store {
	return []models.Store{
		{ID: "1", Name: "Matriz", Slug: "matriz", Active: true},
		{ID: "2", Name: "Catedral", Slug: "catedral", Active: true},
		{ID: "3", Name: "Mineiros", Slug: "mineiros", Active: true},
		{ID: "4", Name: "Rharo", Slug: "rharo", Active: true},
		{ID: "5", Name: "Said Abdala", Slug: "said-abdala", Active: true},
		{ID: "6", Name: "Rio Verde", Slug: "rio-verde", Active: true},
	}
}
