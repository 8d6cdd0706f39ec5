package document

import (
	"io"
	"net/http"

	"doc-tracker/internal/domain"
	"doc-tracker/internal/errors"
	"doc-tracker/internal/middleware"
	"doc-tracker/internal/utils"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize bounds the PDF accepted by Create.
const MaxUploadSize = 32 << 20

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateRequest struct {
	Date     string `form:"date" binding:"required,datetime=2006-01-02"`
	Type     string `form:"type" binding:"required,doctype"`
	Agency   string `form:"agency" binding:"required,max=255"`
	Subject  string `form:"subject" binding:"required,max=255"`
	IsReply  bool   `form:"is_reply"`
	ParentID string `form:"parent_id" binding:"required_if=IsReply true"`
}

type DeleteRequest struct {
	Confirmation string `json:"confirmation" binding:"required"`
}

type NextIDRequest struct {
	Date     string `form:"date" binding:"required,datetime=2006-01-02"`
	IsReply  bool   `form:"is_reply"`
	ParentID string `form:"parent_id"`
}

func (h *Handler) Create(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.Error(errors.Unauthorized("Session not found", nil))
		return
	}

	var form CreateRequest
	if err := c.ShouldBind(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.Error(errors.UnprocessableEntity("A PDF file is required", err))
		return
	}
	if file.Size > MaxUploadSize {
		c.Error(errors.UnprocessableEntity("File is too large", nil))
		return
	}

	f, err := file.Open()
	if err != nil {
		c.Error(errors.BadRequest("Cannot read upload", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.Error(errors.BadRequest("Cannot read upload", err))
		return
	}

	doc, err := h.service.Create(c.Request.Context(), sess, CreateInput{
		Date:     form.Date,
		Type:     domain.DocumentType(form.Type),
		Agency:   form.Agency,
		Subject:  form.Subject,
		IsReply:  form.IsReply,
		ParentID: form.ParentID,
		File:     data,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) NextID(c *gin.Context) {
	var form NextIDRequest
	if err := c.ShouldBindQuery(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	id, err := h.service.PreviewID(c.Request.Context(), form.Date, form.IsReply, form.ParentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) ListDocuments(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.List(c.Request.Context(), ListQuery{
		Keyword: c.Query("q"),
		Type:    c.Query("type"),
		From:    c.Query("from"),
		To:      c.Query("to"),
		Page:    page,
		PerPage: pageSize,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ShowDocument(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) ShowThread(c *gin.Context) {
	nodes, err := h.service.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": nodes})
}

func (h *Handler) Preview(c *gin.Context) {
	file, err := h.service.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, "application/pdf", file.Content)
}

func (h *Handler) Summarize(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.Error(errors.Unauthorized("Session not found", nil))
		return
	}

	var form DeleteRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), sess, c.Param("id"), form.Confirmation); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Tracking(c *gin.Context) {
	report, err := h.service.Tracking(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) ListDeleted(c *gin.Context) {
	records, err := h.service.ListDeleted(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}
