package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"book-keeper/internal/auth"
	"book-keeper/internal/catalog"
	"book-keeper/internal/domain"
	"book-keeper/internal/repository"
	"book-keeper/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	catalog *catalog.Client
	tokens  *auth.TokenIssuer
	logger  *logrus.Logger
}

func NewHandler(users service.UserService, books *catalog.Client, tokens *auth.TokenIssuer, logger *logrus.Logger) *Handler {
	return &Handler{
		users:   users,
		catalog: books,
		tokens:  tokens,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/users", h.register)
		api.POST("/users/login", h.login)
		api.GET("/books/search", h.searchBooks)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		me := api.Group("/users/me", h.authRequired())
		{
			me.GET("", h.me)
			me.POST("/books", h.saveBook)
			me.DELETE("/books/:bookId", h.removeBook)
		}
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type saveBookRequest struct {
	BookID      string   `json:"bookId" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Link        string   `json:"link"`
}

type UserResponse struct {
	ID         string         `json:"id"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	SavedBooks []BookResponse `json:"savedBooks"`
	BookCount  int            `json:"bookCount"`
}

type BookResponse struct {
	BookID      string   `json:"bookId"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Image       string   `json:"image,omitempty"`
	Link        string   `json:"link,omitempty"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Token: result.Token,
		User:  userToResponse(result.User),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: result.Token,
		User:  userToResponse(result.User),
	})
}

func (h *Handler) me(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), identity.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) saveBook(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
		return
	}

	var req saveBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.users.SaveBook(c.Request.Context(), identity.ID, domain.SavedBook{
		BookID:      req.BookID,
		Title:       req.Title,
		Authors:     req.Authors,
		Description: req.Description,
		Image:       req.Image,
		Link:        req.Link,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) removeBook(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
		return
	}

	user, err := h.users.RemoveBook(c.Request.Context(), identity.ID, c.Param("bookId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) searchBooks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	books, err := h.catalog.Search(c.Request.Context(), query)
	if err != nil {
		h.logger.WithError(err).Error("catalog search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog search failed"})
		return
	}

	resp := make([]BookResponse, len(books))
	for i := range books {
		resp[i] = bookToResponse(books[i])
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps service failures to status codes. Every failure is
// logged with its full detail before the generic envelope goes out; a
// NotFound behind a valid token means the store lost a user and is
// treated as an internal fault.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.logger.WithError(err).Warn("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrUserAlreadyExists):
		h.logger.WithError(err).Warn("registration conflict")
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
	case errors.Is(err, service.ErrValidation):
		h.logger.WithError(err).Warn("rejected invalid payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		h.logger.WithError(err).Error("authenticated user missing from store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.WithError(err).Warn("malformed request body")
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func userToResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		SavedBooks: make([]BookResponse, len(user.SavedBooks)),
		BookCount:  len(user.SavedBooks),
	}
	for i := range user.SavedBooks {
		resp.SavedBooks[i] = bookToResponse(user.SavedBooks[i])
	}
	return resp
}

func bookToResponse(book domain.SavedBook) BookResponse {
	authors := book.Authors
	if authors == nil {
		authors = []string{}
	}
	return BookResponse{
		BookID:      book.BookID,
		Title:       book.Title,
		Authors:     authors,
		Description: book.Description,
		Image:       book.Image,
		Link:        book.Link,
	}
}
