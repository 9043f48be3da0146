package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

type stubFetcher struct {
	records     []ports.Record
	err         error
	collection  string
	constraints []ports.Constraint
}

func (f *stubFetcher) Fetch(ctx context.Context, collection string, constraints []ports.Constraint) ([]ports.Record, error) {
	f.collection = collection
	f.constraints = constraints
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type stubDocRepo struct {
	docs       map[string]*domain.Document
	insertID   string
	insertErr  error
	updated    []domain.DocumentStatus
	updatedIDs []string
}

func newStubDocRepo() *stubDocRepo {
	return &stubDocRepo{docs: make(map[string]*domain.Document), insertID: "doc-1"}
}

func (r *stubDocRepo) Insert(ctx context.Context, doc *domain.Document) (string, error) {
	if r.insertErr != nil {
		return "", r.insertErr
	}
	cp := *doc
	cp.ID = r.insertID
	r.docs[r.insertID] = &cp
	return r.insertID, nil
}

func (r *stubDocRepo) FindByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *stubDocRepo) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, at time.Time) error {
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Status = status
	r.updated = append(r.updated, status)
	r.updatedIDs = append(r.updatedIDs, id)
	return nil
}

func TestDocumentService_List(t *testing.T) {
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	signed := created.Add(2 * time.Hour)
	fetcher := &stubFetcher{records: []ports.Record{
		{"id": "d2", "title": "Handbook", "status": "SIGNED", "created_at": created, "signed_at": signed},
		{"id": "d1", "title": "Contract", "status": "PENDING", "created_at": created.Add(-time.Hour)},
	}}
	svc := NewDocumentService(newStubDocRepo(), fetcher, zerolog.Nop())

	docs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents", len(docs))
	}
	if fetcher.collection != "documents" {
		t.Fatalf("queried collection %q", fetcher.collection)
	}

	first := docs[0]
	if first.ID != "d2" || first.Status != domain.StatusSigned {
		t.Fatalf("unexpected first document: %+v", first)
	}
	if first.SignedAt == nil || !first.SignedAt.Equal(signed) {
		t.Fatalf("signed_at not decoded: %+v", first.SignedAt)
	}
	if docs[1].SignedAt != nil {
		t.Fatal("pending document must not carry signed_at")
	}
}

func TestDocumentService_ListPropagatesFetchError(t *testing.T) {
	wantErr := errors.New("all tiers exhausted")
	svc := NewDocumentService(newStubDocRepo(), &stubFetcher{err: wantErr}, zerolog.Nop())

	if _, err := svc.List(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestDocumentService_Upload(t *testing.T) {
	repo := newStubDocRepo()
	svc := NewDocumentService(repo, &stubFetcher{}, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }

	doc, err := svc.Upload(context.Background(), ports.UploadDocumentInput{
		Title:   "NDA",
		Type:    "legal",
		DueDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.ID != "doc-1" {
		t.Fatalf("id = %q", doc.ID)
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("new documents must start PENDING, got %s", doc.Status)
	}
	if doc.CreatedAt != time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) {
		t.Fatalf("created_at = %v", doc.CreatedAt)
	}
}

func TestDocumentService_SignPending(t *testing.T) {
	repo := newStubDocRepo()
	repo.docs["d1"] = &domain.Document{ID: "d1", Status: domain.StatusPending}
	svc := NewDocumentService(repo, &stubFetcher{}, zerolog.Nop())

	if err := svc.Sign(context.Background(), "d1"); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(repo.updated) != 1 || repo.updated[0] != domain.StatusSigned {
		t.Fatalf("updates = %v", repo.updated)
	}
}

func TestDocumentService_SignTwiceRejected(t *testing.T) {
	repo := newStubDocRepo()
	repo.docs["d1"] = &domain.Document{ID: "d1", Status: domain.StatusSigned}
	svc := NewDocumentService(repo, &stubFetcher{}, zerolog.Nop())

	if err := svc.Sign(context.Background(), "d1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if len(repo.updated) != 0 {
		t.Fatal("no update must be written for an invalid transition")
	}
}

func TestDocumentService_RejectPending(t *testing.T) {
	repo := newStubDocRepo()
	repo.docs["d1"] = &domain.Document{ID: "d1", Status: domain.StatusPending}
	svc := NewDocumentService(repo, &stubFetcher{}, zerolog.Nop())

	if err := svc.Reject(context.Background(), "d1"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if repo.updated[0] != domain.StatusRejected {
		t.Fatalf("updates = %v", repo.updated)
	}
}

func TestDocumentService_SignMissing(t *testing.T) {
	svc := NewDocumentService(newStubDocRepo(), &stubFetcher{}, zerolog.Nop())
	if err := svc.Sign(context.Background(), "nope"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}
