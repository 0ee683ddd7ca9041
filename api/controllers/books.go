package controllers

import (
	"net/http"

	"github.com/libralend/libralend-backend/api/responses"
	"github.com/libralend/libralend-backend/api/validators"
	"github.com/libralend/libralend-backend/internal/books"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/logger"
)

type createBookBody struct {
	BookCode string  `json:"book_code" validate:"required"`
	Title    string  `json:"title" validate:"required"`
	Author   string  `json:"author" validate:"required"`
	Genre    *string `json:"genre,omitempty"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
	Count    int     `json:"count" validate:"gte=0"`
}

type updateBookBody struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Author   *string `json:"author,omitempty" validate:"omitempty,min=1"`
	Genre    *string `json:"genre,omitempty"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type restockBody struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type coverPresignBody struct {
	MimeType  string `json:"mime_type" validate:"required"`
	FileName  string `json:"file_name" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

// ListBooks returns a catalog page filtered by search and availability.
func ListBooks(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availableOnly, err := queryBool(r, "availableOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListBooks(r.Context(), books.ListBooksInput{
			Limit:         page.Limit,
			Cursor:        page.Cursor,
			Search:        validators.SanitizeString(r.URL.Query().Get("search"), 200),
			AvailableOnly: availableOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.GetBook(r.Context(), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func CreateBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createBookBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.CreateBook(r.Context(), books.Actor{UserID: actorID, Role: role}, books.CreateBookInput{
			BookCode: body.BookCode,
			Title:    body.Title,
			Author:   body.Author,
			Genre:    body.Genre,
			ImageURL: body.ImageURL,
			Count:    body.Count,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

func UpdateBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateBookBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.UpdateBook(r.Context(), books.Actor{UserID: actorID, Role: role}, bookID, books.UpdateBookInput{
			Title:    body.Title,
			Author:   body.Author,
			Genre:    body.Genre,
			ImageURL: body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func DeleteBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteBook(r.Context(), books.Actor{UserID: actorID, Role: role}, bookID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func RestockBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body restockBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.RestockBook(r.Context(), books.Actor{UserID: actorID, Role: role}, bookID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

// PresignBookCover returns a signed upload target for a cover image.
func PresignBookCover(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "books service unavailable"))
			return
		}

		actorID, role, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body coverPresignBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := svc.PresignCover(r.Context(), books.Actor{UserID: actorID, Role: role}, bookID, books.CoverPresignInput{
			MimeType:  body.MimeType,
			FileName:  body.FileName,
			SizeBytes: body.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, upload)
	}
}
