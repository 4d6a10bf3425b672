package api

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"studyhelper/internal/apperr"
	"studyhelper/internal/logger"
	"studyhelper/internal/studio"
)

//go:embed templates/*.html
var templateFS embed.FS

const pdfMIME = "application/pdf"

// Handler serves the study page and its JSON companion endpoints over a
// single Studio.
type Handler struct {
	studio          *studio.Studio
	logger          *logger.Logger
	generateTimeout time.Duration
}

// NewHandler constructs a Handler. A zero generateTimeout leaves model calls
// bounded only by the request context.
func NewHandler(s *studio.Studio, log *logger.Logger, generateTimeout time.Duration) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{studio: s, logger: log, generateTimeout: generateTimeout}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	page := router.Group("/")
	page.Use(CSRF())
	page.GET("/", h.index)
	page.POST("/upload", h.upload)
	page.POST("/generate", h.generate)
	page.POST("/reset", h.reset)
	page.POST("/history", h.toggleHistory)

	api := router.Group("/api")
	api.GET("/state", h.state)
	api.GET("/sessions", h.listSessions)
	api.GET("/sessions/:id", h.getSession)
}

type pageData struct {
	View      studio.View
	CSRFToken string
}

func (h *Handler) render(c *gin.Context, status int) {
	c.HTML(status, "index.html", pageData{View: h.studio.View(), CSRFToken: c.GetString(csrfContextKey)})
}

func (h *Handler) index(c *gin.Context) {
	h.render(c, http.StatusOK)
}

func (h *Handler) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.Error(err)
		h.render(c, http.StatusBadRequest)
		return
	}
	f, err := file.Open()
	if err != nil {
		c.Error(err)
		h.render(c, http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.Error(err)
		h.render(c, http.StatusBadRequest)
		return
	}
	if mt := mimetype.Detect(data); !mt.Is(pdfMIME) {
		c.Error(errors.New("unsupported file type " + mt.String()))
		c.HTML(http.StatusUnsupportedMediaType, "index.html", pageData{
			View:      withError(h.studio.View(), "Please upload a PDF file."),
			CSRFToken: c.GetString(csrfContextKey),
		})
		return
	}

	if err := h.studio.Upload(c.Request.Context(), filepath.Base(file.Filename), data); err != nil {
		c.Error(err)
		h.render(c, statusFor(err))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) generate(c *gin.Context) {
	ctx := c.Request.Context()
	if h.generateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.generateTimeout)
		defer cancel()
	}
	session, err := h.studio.Generate(ctx, nil)
	if err != nil {
		c.Error(err)
		h.render(c, statusFor(err))
		return
	}
	h.logger.Info("study materials generated", "session_id", session.ID, "file", session.Filename)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) reset(c *gin.Context) {
	h.studio.Reset(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) toggleHistory(c *gin.Context) {
	if c.PostForm("action") == "hide" {
		h.studio.HideHistory()
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if _, err := h.studio.ShowHistory(c.Request.Context()); err != nil {
		c.Error(err)
		h.render(c, statusFor(err))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.studio.View())
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.studio.ListSessions(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list sessions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": studio.HistoryEntries(sessions)})
}

func (h *Handler) getSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	session, err := h.studio.Session(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func statusFor(err error) int {
	var (
		parseErr *apperr.DocumentParseError
		modelErr *apperr.ModelInvocationError
	)
	switch {
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrGenerationDisabled), errors.Is(err, apperr.ErrNothingToGenerate):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &modelErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func withError(v studio.View, msg string) studio.View {
	v.Error = msg
	return v
}
