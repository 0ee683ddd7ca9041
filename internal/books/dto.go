package books

import (
	"time"

	"github.com/google/uuid"

	"github.com/libralend/libralend-backend/pkg/db/models"
)

// BookDTO represents the catalog payload returned to staff clients.
type BookDTO struct {
	ID          uuid.UUID `json:"id"`
	BookCode    string    `json:"book_code"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       *string   `json:"genre,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Count       int       `json:"count"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookList wraps a page of books plus the cursor for the next page.
type BookList struct {
	Items  []BookDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

// CoverUploadDTO carries a presigned upload target for a cover image.
type CoverUploadDTO struct {
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toBookDTO(book models.Book) BookDTO {
	return BookDTO{
		ID:          book.ID,
		BookCode:    book.BookCode,
		Title:       book.Title,
		Author:      book.Author,
		Genre:       book.Genre,
		ImageURL:    book.ImageURL,
		Count:       book.Count,
		IsAvailable: book.IsAvailable,
		CreatedAt:   book.CreatedAt,
		UpdatedAt:   book.UpdatedAt,
	}
}

func toBookDTOs(rows []models.Book) []BookDTO {
	items := make([]BookDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toBookDTO(row))
	}
	return items
}
