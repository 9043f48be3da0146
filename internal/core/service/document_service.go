package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/api/metrics"
	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

const documentsCollection = "documents"

const documentListLimit = 50

type DocumentService struct {
	repo    ports.DocumentRepository
	fetcher ports.Fetcher
	now     func() time.Time
	logger  zerolog.Logger
}

func NewDocumentService(repo ports.DocumentRepository, fetcher ports.Fetcher, logger zerolog.Logger) *DocumentService {
	return &DocumentService{repo: repo, fetcher: fetcher, now: time.Now, logger: logger}
}

// List returns the most recent documents, newest first. Reads go through
// the offline fetch layer, so the result may come from a local or cached
// copy when the backend is unreachable.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	records, err := s.fetcher.Fetch(ctx, documentsCollection, []ports.Constraint{
		ports.OrderBy("created_at", true),
		ports.Limit(documentListLimit),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list documents")
		return nil, err
	}

	docs := make([]domain.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, documentFromRecord(r))
	}
	return docs, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.repo.FindByID(ctx, id)
}

// Upload creates a new document in the PENDING state.
func (s *DocumentService) Upload(ctx context.Context, in ports.UploadDocumentInput) (*domain.Document, error) {
	doc := &domain.Document{
		Title:       in.Title,
		Type:        in.Type,
		Description: in.Description,
		Notes:       in.Notes,
		DueDate:     in.DueDate,
		Status:      domain.StatusPending,
		CreatedAt:   s.now().UTC(),
	}

	id, err := s.repo.Insert(ctx, doc)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upload document")
		return nil, err
	}
	doc.ID = id

	s.logger.Info().Str("document_id", id).Str("title", doc.Title).Msg("document uploaded")
	return doc, nil
}

// Sign transitions a pending document to SIGNED. Signing is one-way.
func (s *DocumentService) Sign(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.StatusSigned)
}

// Reject transitions a pending document to REJECTED.
func (s *DocumentService) Reject(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.StatusRejected)
}

func (s *DocumentService) transition(ctx context.Context, id string, next domain.DocumentStatus) error {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !doc.Status.CanTransitionTo(next) {
		return domain.ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, id, next, s.now().UTC()); err != nil {
		s.logger.Error().Err(err).Str("document_id", id).Msg("failed to update document status")
		return err
	}

	metrics.DocumentTransitionsTotal.WithLabelValues(string(next)).Inc()
	s.logger.Info().Str("document_id", id).Str("status", string(next)).Msg("document status updated")
	return nil
}

// documentFromRecord decodes an untyped fetched record into a Document.
// Missing fields decode to zero values; unknown statuses stay as-is so
// the caller can still render them.
func documentFromRecord(r ports.Record) domain.Document {
	doc := domain.Document{
		ID:          r.String("id"),
		Title:       r.String("title"),
		Type:        r.String("type"),
		Description: r.String("description"),
		Notes:       r.String("notes"),
		DueDate:     r.Time("due_date"),
		Status:      domain.DocumentStatus(r.String("status")),
		CreatedAt:   r.Time("created_at"),
	}
	if t := r.Time("signed_at"); !t.IsZero() {
		doc.SignedAt = &t
	}
	return doc
}
