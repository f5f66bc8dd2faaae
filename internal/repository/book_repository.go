package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// BookRepository manages dissertation books.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs a BookRepository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Create inserts a new book, demoting the student's previous current book in
// the same transaction.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	if book.SubmittedAt.IsZero() {
		book.SubmittedAt = now
	}
	book.UpdatedAt = now
	book.IsCurrent = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create book: %w", err)
	}
	defer tx.Rollback()

	const demote = `UPDATE books SET is_current = FALSE, updated_at = $2 WHERE student_id = $1 AND is_current = TRUE`
	if _, err := tx.ExecContext(ctx, demote, book.StudentID, now); err != nil {
		return fmt.Errorf("demote current book: %w", err)
	}
	const insert = `INSERT INTO books (id, student_id, title, is_current, average_exam_mark, submitted_at, created_at, updated_at)
        VALUES (:id, :student_id, :title, :is_current, :average_exam_mark, :submitted_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create book: %w", err)
	}
	return nil
}

// FindByID fetches a book by id.
func (r *BookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	const query = `SELECT id, student_id, title, is_current, average_exam_mark, submitted_at, created_at, updated_at
        FROM books WHERE id = $1`
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, id); err != nil {
		return nil, err
	}
	return &book, nil
}

// CurrentByStudent returns the student's current book, or sql.ErrNoRows.
func (r *BookRepository) CurrentByStudent(ctx context.Context, studentID string) (*models.Book, error) {
	const query = `SELECT id, student_id, title, is_current, average_exam_mark, submitted_at, created_at, updated_at
        FROM books WHERE student_id = $1 AND is_current = TRUE`
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, studentID); err != nil {
		return nil, err
	}
	return &book, nil
}

// ListByStudent returns all books of a student newest-first.
func (r *BookRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Book, error) {
	const query = `SELECT id, student_id, title, is_current, average_exam_mark, submitted_at, created_at, updated_at
        FROM books WHERE student_id = $1 ORDER BY submitted_at DESC`
	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, query, studentID); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// SetAverageExamMark stores the computed examination average.
func (r *BookRepository) SetAverageExamMark(ctx context.Context, bookID string, avg float64) error {
	const query = `UPDATE books SET average_exam_mark = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, bookID, avg, time.Now().UTC()); err != nil {
		return fmt.Errorf("set average exam mark: %w", err)
	}
	return nil
}
