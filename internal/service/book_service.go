package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type bookReadRepository interface {
	FindByID(ctx context.Context, id string) (*models.Book, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Book, error)
}

type bookAssignmentReader interface {
	CurrentAssignments(ctx context.Context, bookID string) ([]models.ExaminerAssignmentDetail, error)
	AllAssignments(ctx context.Context, bookID string) ([]models.ExaminerAssignmentDetail, error)
}

// BookService serves the book read endpoints.
type BookService struct {
	books       bookReadRepository
	assignments bookAssignmentReader
	timeline    statusTimelineRepository
	logger      *zap.Logger
}

// NewBookService constructs BookService.
func NewBookService(books bookReadRepository, assignments bookAssignmentReader, timeline statusTimelineRepository, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{books: books, assignments: assignments, timeline: timeline, logger: logger}
}

// ListByStudent returns all books of a student newest-first.
func (s *BookService) ListByStudent(ctx context.Context, studentID string) ([]models.Book, error) {
	books, err := s.books.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list books")
	}
	return books, nil
}

// Detail aggregates one book with its current examiner assignments.
func (s *BookService) Detail(ctx context.Context, id string, includeSuperseded bool) (*models.BookDetail, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	detail := models.BookDetail{Book: *book}
	if includeSuperseded {
		detail.Assignments, err = s.assignments.AllAssignments(ctx, id)
	} else {
		detail.Assignments, err = s.assignments.CurrentAssignments(ctx, id)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner assignments")
	}
	return &detail, nil
}

// History returns the book's status timeline.
func (s *BookService) History(ctx context.Context, id string) ([]models.StatusHistoryEntry, error) {
	if _, err := s.books.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	entries, err := s.timeline.History(ctx, models.StatusOwner{Kind: models.OwnerBook, ID: id})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return entries, nil
}
