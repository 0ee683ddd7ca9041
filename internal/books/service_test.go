package books

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/outbox"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

type stubBooksRepo struct {
	book      *models.Book
	byCode    *models.Book
	created   *models.Book
	updates   map[string]any
	deletedID uuid.UUID
	openLoans int64
	listRows  []models.Book
	listNext  *pagination.Cursor
	listErr   error
}

func (s *stubBooksRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubBooksRepo) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	s.created = book
	return book, nil
}

func (s *stubBooksRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	if s.book == nil || s.book.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.book
	return &copied, nil
}

func (s *stubBooksRepo) FindByCode(ctx context.Context, code string) (*models.Book, error) {
	if s.byCode == nil || s.byCode.BookCode != code {
		return nil, gorm.ErrRecordNotFound
	}
	return s.byCode, nil
}

func (s *stubBooksRepo) List(ctx context.Context, params listBooksParams) ([]models.Book, *pagination.Cursor, error) {
	return s.listRows, s.listNext, s.listErr
}

func (s *stubBooksRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	if s.book != nil && s.book.ID == id {
		if v, ok := updates["title"]; ok {
			s.book.Title = v.(string)
		}
		if v, ok := updates["count"]; ok {
			s.book.Count = v.(int)
		}
		if v, ok := updates["is_available"]; ok {
			s.book.IsAvailable = v.(bool)
		}
		if v, ok := updates["image_url"]; ok {
			url := v.(string)
			s.book.ImageURL = &url
		}
	}
	return nil
}

func (s *stubBooksRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deletedID = id
	return nil
}

func (s *stubBooksRepo) CountOpenLoans(ctx context.Context, bookID uuid.UUID) (int64, error) {
	return s.openLoans, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubSigner struct {
	url string
	err error
}

func (s *stubSigner) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func staffActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.StaffRoleLibrarian}
}

func newBooksService(t *testing.T, repo Repository, events *stubOutboxPublisher, signer coverSigner) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, events, signer, "covers-bucket", 15*time.Minute, 10)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestCreateBookEmitsEvent(t *testing.T) {
	repo := &stubBooksRepo{}
	events := &stubOutboxPublisher{}
	svc := newBooksService(t, repo, events, nil)

	dto, err := svc.CreateBook(context.Background(), staffActor(), CreateBookInput{
		BookCode: "LB-001",
		Title:    "The Go Programming Language",
		Author:   "Donovan",
		Count:    3,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.created == nil {
		t.Fatal("expected create call")
	}
	if !dto.IsAvailable || dto.Count != 3 {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventBookCreated {
		t.Fatalf("unexpected events %+v", events.events)
	}
}

func TestCreateBookZeroCountUnavailable(t *testing.T) {
	repo := &stubBooksRepo{}
	events := &stubOutboxPublisher{}
	svc := newBooksService(t, repo, events, nil)

	dto, err := svc.CreateBook(context.Background(), staffActor(), CreateBookInput{
		BookCode: "LB-002",
		Title:    "Out of Print",
		Author:   "Nobody",
		Count:    0,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dto.IsAvailable {
		t.Fatal("zero copies must not be available")
	}
}

func TestCreateBookDuplicateCode(t *testing.T) {
	existing := &models.Book{ID: uuid.New(), BookCode: "LB-001"}
	repo := &stubBooksRepo{byCode: existing}
	events := &stubOutboxPublisher{}
	svc := newBooksService(t, repo, events, nil)

	_, err := svc.CreateBook(context.Background(), staffActor(), CreateBookInput{
		BookCode: "LB-001",
		Title:    "Duplicate",
		Author:   "Someone",
		Count:    1,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error %v", err)
	}
	if len(events.events) != 0 {
		t.Fatal("unexpected outbox call")
	}
}

func TestCreateBookValidation(t *testing.T) {
	repo := &stubBooksRepo{}
	events := &stubOutboxPublisher{}
	svc := newBooksService(t, repo, events, nil)

	cases := []CreateBookInput{
		{BookCode: "", Title: "t", Author: "a", Count: 1},
		{BookCode: "c", Title: " ", Author: "a", Count: 1},
		{BookCode: "c", Title: "t", Author: "", Count: 1},
		{BookCode: "c", Title: "t", Author: "a", Count: -1},
	}
	for _, input := range cases {
		if _, err := svc.CreateBook(context.Background(), staffActor(), input); err == nil {
			t.Fatalf("expected validation error for %+v", input)
		}
	}
}

func TestRestockBookRecomputesAvailability(t *testing.T) {
	bookID := uuid.New()
	repo := &stubBooksRepo{book: &models.Book{ID: bookID, BookCode: "LB-003", Title: "Restock Me", Count: 0}}
	events := &stubOutboxPublisher{}
	svc := newBooksService(t, repo, events, nil)

	dto, err := svc.RestockBook(context.Background(), staffActor(), bookID, 2)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dto.Count != 2 || !dto.IsAvailable {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if repo.updates["count"] != 2 || repo.updates["is_available"] != true {
		t.Fatalf("unexpected updates %+v", repo.updates)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventBookRestocked {
		t.Fatalf("unexpected events %+v", events.events)
	}
}

func TestRestockBookRejectsNonPositiveQty(t *testing.T) {
	repo := &stubBooksRepo{}
	svc := newBooksService(t, repo, &stubOutboxPublisher{}, nil)

	if _, err := svc.RestockBook(context.Background(), staffActor(), uuid.New(), 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteBookBlockedByOpenLoans(t *testing.T) {
	bookID := uuid.New()
	repo := &stubBooksRepo{
		book:      &models.Book{ID: bookID, BookCode: "LB-004", Title: "Borrowed"},
		openLoans: 1,
	}
	events := &stubOutboxPublisher{}
	svc := newBooksService(t, repo, events, nil)

	err := svc.DeleteBook(context.Background(), staffActor(), bookID)
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error %v", err)
	}
	if repo.deletedID != uuid.Nil {
		t.Fatal("unexpected delete call")
	}
}

func TestDeleteBookEmitsRemovedEvent(t *testing.T) {
	bookID := uuid.New()
	repo := &stubBooksRepo{book: &models.Book{ID: bookID, BookCode: "LB-005", Title: "Remove Me"}}
	events := &stubOutboxPublisher{}
	svc := newBooksService(t, repo, events, nil)

	if err := svc.DeleteBook(context.Background(), staffActor(), bookID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.deletedID != bookID {
		t.Fatal("expected delete call")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventBookRemoved {
		t.Fatalf("unexpected events %+v", events.events)
	}
}

func TestGetBookNotFound(t *testing.T) {
	repo := &stubBooksRepo{}
	svc := newBooksService(t, repo, &stubOutboxPublisher{}, nil)

	_, err := svc.GetBook(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestListBooksEncodesCursor(t *testing.T) {
	next := &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &stubBooksRepo{
		listRows: []models.Book{{ID: uuid.New(), BookCode: "LB-006", Title: "Page One"}},
		listNext: next,
	}
	svc := newBooksService(t, repo, &stubOutboxPublisher{}, nil)

	list, err := svc.ListBooks(context.Background(), ListBooksInput{Limit: 1})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("unexpected items %+v", list.Items)
	}
	if list.Cursor != pagination.EncodeCursor(*next) {
		t.Fatalf("unexpected cursor %q", list.Cursor)
	}
}

func TestListBooksRejectsBadCursor(t *testing.T) {
	repo := &stubBooksRepo{}
	svc := newBooksService(t, repo, &stubOutboxPublisher{}, nil)

	if _, err := svc.ListBooks(context.Background(), ListBooksInput{Cursor: "not-base64!"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPresignCoverStoresPublicURL(t *testing.T) {
	bookID := uuid.New()
	repo := &stubBooksRepo{book: &models.Book{ID: bookID, BookCode: "LB-007", Title: "Cover Me"}}
	events := &stubOutboxPublisher{}
	signer := &stubSigner{url: "https://signed.example/put"}
	svc := newBooksService(t, repo, events, signer)

	out, err := svc.PresignCover(context.Background(), staffActor(), bookID, CoverPresignInput{
		MimeType:  "image/png",
		FileName:  "cover art.png",
		SizeBytes: 1024,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if out.UploadURL != "https://signed.example/put" {
		t.Fatalf("unexpected upload url %q", out.UploadURL)
	}
	if !strings.HasPrefix(out.ObjectKey, "covers/"+bookID.String()+"/") {
		t.Fatalf("unexpected object key %q", out.ObjectKey)
	}
	if strings.Contains(out.ObjectKey, " ") {
		t.Fatalf("object key not sanitized %q", out.ObjectKey)
	}
	stored, ok := repo.updates["image_url"].(string)
	if !ok || stored != out.PublicURL {
		t.Fatalf("expected image_url update, got %+v", repo.updates)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventBookUpdated {
		t.Fatalf("unexpected events %+v", events.events)
	}
}

func TestPresignCoverRejectsBadMime(t *testing.T) {
	bookID := uuid.New()
	repo := &stubBooksRepo{book: &models.Book{ID: bookID, BookCode: "LB-008", Title: "No PDF"}}
	svc := newBooksService(t, repo, &stubOutboxPublisher{}, &stubSigner{url: "https://signed.example/put"})

	_, err := svc.PresignCover(context.Background(), staffActor(), bookID, CoverPresignInput{
		MimeType:  "application/pdf",
		FileName:  "cover.pdf",
		SizeBytes: 1024,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPresignCoverWithoutSigner(t *testing.T) {
	repo := &stubBooksRepo{}
	svc := newBooksService(t, repo, &stubOutboxPublisher{}, nil)

	_, err := svc.PresignCover(context.Background(), staffActor(), uuid.New(), CoverPresignInput{
		MimeType:  "image/png",
		FileName:  "cover.png",
		SizeBytes: 1024,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCatalogActionsRequireActor(t *testing.T) {
	repo := &stubBooksRepo{}
	svc := newBooksService(t, repo, &stubOutboxPublisher{}, nil)

	if _, err := svc.CreateBook(context.Background(), Actor{}, CreateBookInput{BookCode: "c", Title: "t", Author: "a"}); err == nil {
		t.Fatal("expected error")
	}
	if err := svc.DeleteBook(context.Background(), Actor{UserID: uuid.New()}, uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}
