package books

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/outbox"
	"github.com/libralend/libralend-backend/pkg/outbox/payloads"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type coverSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
}

// Service exposes catalog management operations.
type Service interface {
	CreateBook(ctx context.Context, actor Actor, input CreateBookInput) (*BookDTO, error)
	UpdateBook(ctx context.Context, actor Actor, bookID uuid.UUID, input UpdateBookInput) (*BookDTO, error)
	RestockBook(ctx context.Context, actor Actor, bookID uuid.UUID, qty int) (*BookDTO, error)
	DeleteBook(ctx context.Context, actor Actor, bookID uuid.UUID) error
	GetBook(ctx context.Context, bookID uuid.UUID) (*BookDTO, error)
	ListBooks(ctx context.Context, input ListBooksInput) (*BookList, error)
	PresignCover(ctx context.Context, actor Actor, bookID uuid.UUID, input CoverPresignInput) (*CoverUploadDTO, error)
}

// Actor identifies the staff member performing a catalog change.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
}

// CreateBookInput carries the fields required to add a title to the catalog.
type CreateBookInput struct {
	BookCode string
	Title    string
	Author   string
	Genre    *string
	ImageURL *string
	Count    int
}

// UpdateBookInput carries optional catalog field changes. Nil fields are untouched.
type UpdateBookInput struct {
	Title    *string
	Author   *string
	Genre    *string
	ImageURL *string
}

// ListBooksInput carries catalog listing filters.
type ListBooksInput struct {
	Limit         int
	Cursor        string
	Search        string
	AvailableOnly bool
}

// CoverPresignInput models a cover upload request.
type CoverPresignInput struct {
	MimeType  string
	FileName  string
	SizeBytes int64
}

var coverMimeTypes = []string{"image/png", "image/jpeg", "image/webp"}

type service struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	signer         coverSigner
	bucket         string
	uploadTTL      time.Duration
	maxUploadBytes int64
}

// NewService builds a catalog service with the required dependencies. The signer
// may be nil when cover uploads are disabled.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, signer coverSigner, bucket string, uploadTTL time.Duration, maxUploadMB int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &service{
		repo:           repo,
		tx:             tx,
		outbox:         outboxSvc,
		signer:         signer,
		bucket:         bucket,
		uploadTTL:      uploadTTL,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}, nil
}

func (s *service) CreateBook(ctx context.Context, actor Actor, input CreateBookInput) (*BookDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.BookCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book_code is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	author := strings.TrimSpace(input.Author)
	if author == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author is required")
	}
	if input.Count < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must not be negative")
	}

	book := &models.Book{
		ID:       uuid.New(),
		BookCode: code,
		Title:    title,
		Author:   author,
		Genre:    input.Genre,
		ImageURL: input.ImageURL,
		Count:    input.Count,
	}
	book.RecomputeAvailability()

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing, err := repo.FindByCode(ctx, code); err == nil && existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "book code already in use")
		} else if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check book code")
		}
		if _, err := repo.Create(ctx, book); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist book")
		}
		return s.outbox.Emit(ctx, tx, s.inventoryEvent(enums.EventBookCreated, actor, book))
	}); err != nil {
		return nil, err
	}

	dto := toBookDTO(*book)
	return &dto, nil
}

func (s *service) UpdateBook(ctx context.Context, actor Actor, bookID uuid.UUID, input UpdateBookInput) (*BookDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title must not be empty")
		}
		updates["title"] = title
	}
	if input.Author != nil {
		author := strings.TrimSpace(*input.Author)
		if author == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "author must not be empty")
		}
		updates["author"] = author
	}
	if input.Genre != nil {
		updates["genre"] = strings.TrimSpace(*input.Genre)
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var book *models.Book
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, bookID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}
		if err := repo.Update(ctx, loaded.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
		}
		book, err = repo.FindByID(ctx, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload book")
		}
		return s.outbox.Emit(ctx, tx, s.inventoryEvent(enums.EventBookUpdated, actor, book))
	}); err != nil {
		return nil, err
	}

	dto := toBookDTO(*book)
	return &dto, nil
}

func (s *service) RestockBook(ctx context.Context, actor Actor, bookID uuid.UUID, qty int) (*BookDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	var book *models.Book
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, bookID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}
		loaded.Count += qty
		loaded.RecomputeAvailability()
		updates := map[string]any{
			"count":        loaded.Count,
			"is_available": loaded.IsAvailable,
		}
		if err := repo.Update(ctx, loaded.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock book")
		}
		book = loaded
		return s.outbox.Emit(ctx, tx, s.inventoryEvent(enums.EventBookRestocked, actor, book))
	}); err != nil {
		return nil, err
	}

	dto := toBookDTO(*book)
	return &dto, nil
}

func (s *service) DeleteBook(ctx context.Context, actor Actor, bookID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if bookID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		book, err := repo.FindByID(ctx, bookID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}
		open, err := repo.CountOpenLoans(ctx, book.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open loans")
		}
		if open > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "book has copies out on loan")
		}
		if err := repo.Delete(ctx, book.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
		}
		return s.outbox.Emit(ctx, tx, s.inventoryEvent(enums.EventBookRemoved, actor, book))
	})
}

func (s *service) GetBook(ctx context.Context, bookID uuid.UUID) (*BookDTO, error) {
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}
	book, err := s.repo.FindByID(ctx, bookID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	dto := toBookDTO(*book)
	return &dto, nil
}

func (s *service) ListBooks(ctx context.Context, input ListBooksInput) (*BookList, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, listBooksParams{
		Limit:         input.Limit,
		Cursor:        cursor,
		Search:        strings.TrimSpace(input.Search),
		AvailableOnly: input.AvailableOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}

	result := &BookList{Items: toBookDTOs(rows)}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) PresignCover(ctx context.Context, actor Actor, bookID uuid.UUID, input CoverPresignInput) (*CoverUploadDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if s.signer == nil || s.bucket == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cover uploads are not configured")
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > s.maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", s.maxUploadBytes))
	}
	mimeType := strings.TrimSpace(input.MimeType)
	if !isCoverMime(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type not allowed for covers")
	}

	book, err := s.repo.FindByID(ctx, bookID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	objectKey := buildCoverKey(book.ID, fileName)
	expiresAt := time.Now().Add(s.uploadTTL)
	uploadURL, err := s.signer.SignedURL(s.bucket, objectKey, mimeType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}
	publicURL := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectKey)

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, book.ID, map[string]any{"image_url": publicURL}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cover url")
		}
		book.ImageURL = &publicURL
		return s.outbox.Emit(ctx, tx, s.inventoryEvent(enums.EventBookUpdated, actor, book))
	}); err != nil {
		return nil, err
	}

	return &CoverUploadDTO{
		UploadURL: uploadURL,
		PublicURL: publicURL,
		ObjectKey: objectKey,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *service) inventoryEvent(eventType enums.OutboxEventType, actor Actor, book *models.Book) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBook,
		AggregateID:   book.ID,
		Version:       1,
		Actor:         buildActor(actor),
		Data: payloads.BookInventoryEvent{
			BookID:   book.ID,
			BookCode: book.BookCode,
			Title:    book.Title,
			Count:    book.Count,
		},
	}
}

func requireActor(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff role missing")
	}
	return nil
}

func buildActor(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}

func isCoverMime(mimeType string) bool {
	for _, candidate := range coverMimeTypes {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func buildCoverKey(bookID uuid.UUID, fileName string) string {
	clean := sanitizeFileName(fileName)
	if clean == "" {
		clean = bookID.String()
	}
	return fmt.Sprintf("covers/%s/%s", bookID.String(), clean)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" || clean == "." {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
