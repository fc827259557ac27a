package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vidinfra/docvault/internal/api/dto"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/service"
	"github.com/vidinfra/docvault/internal/types"
)

type NoteHandler struct {
	service service.NoteService
	log     *logger.Logger
}

func NewNoteHandler(service service.NoteService, log *logger.Logger) *NoteHandler {
	return &NoteHandler{service: service, log: log}
}

// @Summary Create a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param note body dto.CreateNoteRequest true "Note"
// @Success 201 {object} dto.NoteResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /notes [post]
func (h *NoteHandler) CreateNote(c *gin.Context) {
	var req dto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidBody(err))
		return
	}

	resp, err := h.service.CreateNote(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Param include_deleted query bool false "Also match a soft-deleted note"
// @Success 200 {object} dto.NoteResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /notes/{id} [get]
func (h *NoteHandler) GetNote(c *gin.Context) {
	scope, ok := bindScope(c)
	if !ok {
		return
	}

	resp, err := h.service.GetNote(c.Request.Context(), c.Param("id"), scope)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List notes
// @Tags Notes
// @Produce json
// @Param filter query types.NoteFilter false "Filter"
// @Success 200 {object} dto.ListNotesResponse
// @Router /notes [get]
func (h *NoteHandler) GetNotes(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	resp, err := h.service.GetNotes(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Count notes
// @Tags Notes
// @Produce json
// @Param filter query types.NoteFilter false "Filter"
// @Success 200 {object} dto.CountNotesResponse
// @Router /notes/count [get]
func (h *NoteHandler) CountNotes(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	resp, err := h.service.CountNotes(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update fields of a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param note body dto.UpdateNoteRequest true "Fields to change"
// @Success 200 {object} dto.NoteResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /notes/{id} [patch]
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidBody(err))
		return
	}

	resp, err := h.service.UpdateNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Replace a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param note body dto.ReplaceNoteRequest true "Replacement"
// @Success 200 {object} dto.NoteResponse
// @Router /notes/{id} [put]
func (h *NoteHandler) ReplaceNote(c *gin.Context) {
	var req dto.ReplaceNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidBody(err))
		return
	}

	resp, err := h.service.ReplaceNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Soft delete a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} dto.NoteResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /notes/{id} [delete]
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	resp, err := h.service.DeleteNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Restore a soft-deleted note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} dto.NoteResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /notes/{id}/restore [post]
func (h *NoteHandler) RestoreNote(c *gin.Context) {
	resp, err := h.service.RestoreNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Permanently remove a note
// @Tags Notes
// @Param id path string true "Note ID"
// @Success 204
// @Router /notes/{id}/purge [delete]
func (h *NoteHandler) PurgeNote(c *gin.Context) {
	if err := h.service.PurgeNote(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Permanently remove notes deleted long enough ago
// @Tags Notes
// @Produce json
// @Param older_than query string true "Minimum time in the trash, e.g. 720h"
// @Success 200 {object} dto.PurgeDeletedNotesResponse
// @Router /notes/trash [delete]
func (h *NoteHandler) PurgeDeletedNotes(c *gin.Context) {
	var req dto.PurgeDeletedNotesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(invalidQuery(err))
		return
	}

	resp, err := h.service.PurgeDeletedNotes(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the audit trail of a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} dto.NoteAuditResponse
// @Router /notes/{id}/audit [get]
func (h *NoteHandler) GetNoteAudit(c *gin.Context) {
	resp, err := h.service.GetNoteAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Soft delete every note with a tag
// @Tags Notes
// @Accept json
// @Produce json
// @Param request body dto.BulkNoteRequest true "Tag"
// @Success 200 {object} dto.BulkNoteResponse
// @Router /notes/bulk/delete [post]
func (h *NoteHandler) BulkDeleteNotes(c *gin.Context) {
	var req dto.BulkNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidBody(err))
		return
	}

	resp, err := h.service.BulkDeleteNotes(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Restore every soft-deleted note with a tag
// @Tags Notes
// @Accept json
// @Produce json
// @Param request body dto.BulkNoteRequest true "Tag"
// @Success 200 {object} dto.BulkNoteResponse
// @Router /notes/bulk/restore [post]
func (h *NoteHandler) BulkRestoreNotes(c *gin.Context) {
	var req dto.BulkNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidBody(err))
		return
	}

	resp, err := h.service.BulkRestoreNotes(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List the distinct tags in use
// @Tags Notes
// @Produce json
// @Success 200 {object} dto.NoteTagsResponse
// @Router /notes/tags [get]
func (h *NoteHandler) GetNoteTags(c *gin.Context) {
	scope, ok := bindScope(c)
	if !ok {
		return
	}

	resp, err := h.service.GetNoteTags(c.Request.Context(), scope)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Count notes per tag
// @Tags Notes
// @Produce json
// @Success 200 {object} dto.NoteTagStatsResponse
// @Router /notes/stats/tags [get]
func (h *NoteHandler) GetNoteTagStats(c *gin.Context) {
	scope, ok := bindScope(c)
	if !ok {
		return
	}

	resp, err := h.service.GetNoteTagStats(c.Request.Context(), scope)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func bindScope(c *gin.Context) (types.DeletedScope, bool) {
	var scope types.DeletedScope
	if err := c.ShouldBindQuery(&scope); err != nil {
		c.Error(invalidQuery(err))
		return scope, false
	}
	if err := scope.Validate(); err != nil {
		c.Error(err)
		return scope, false
	}
	return scope, true
}

func bindFilter(c *gin.Context) (*types.NoteFilter, bool) {
	filter := types.NewNoteFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(invalidQuery(err))
		return nil, false
	}
	return filter, true
}

func invalidBody(err error) error {
	return ierr.WithError(err).
		WithHint("Invalid request format").
		Mark(ierr.ErrValidation)
}

func invalidQuery(err error) error {
	return ierr.WithError(err).
		WithHint("Invalid query parameters").
		Mark(ierr.ErrValidation)
}
