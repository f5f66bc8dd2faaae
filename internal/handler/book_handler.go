package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/service"
	"github.com/openacademia/research-track-api/pkg/response"
)

// BookHandler exposes book read endpoints.
type BookHandler struct {
	books *service.BookService
}

// NewBookHandler constructs BookHandler.
func NewBookHandler(books *service.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// ListByStudent godoc
// @Summary List a student's books
// @Tags Books
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/books [get]
func (h *BookHandler) ListByStudent(c *gin.Context) {
	books, err := h.books.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, books, nil)
}

// Get godoc
// @Summary Book detail with examiner assignments
// @Tags Books
// @Produce json
// @Param id path string true "Book ID"
// @Param includeSuperseded query bool false "Include superseded assignment rounds"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	includeSuperseded := c.Query("includeSuperseded") == "true"
	detail, err := h.books.Detail(c.Request.Context(), c.Param("id"), includeSuperseded)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// History godoc
// @Summary Book status history
// @Tags Books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} response.Envelope
// @Router /books/{id}/history [get]
func (h *BookHandler) History(c *gin.Context) {
	entries, err := h.books.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
