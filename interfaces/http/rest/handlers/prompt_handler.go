package handlers

import (
	"net/http"

	"promptstore/application/commands"
	"promptstore/application/commands/bus"
	"promptstore/application/queries"
	querybus "promptstore/application/queries/bus"
	"promptstore/application/services"
	"promptstore/domain/core/entities"
	"promptstore/pkg/common"
	"promptstore/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// PromptHandler serves the prompt endpoints
type PromptHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *errors.ErrorHandler
	logger     *zap.Logger
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *errors.ErrorHandler,
	logger *zap.Logger,
) *PromptHandler {
	return &PromptHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CreatePromptRequest is the body of POST /users/{userID}/prompts
type CreatePromptRequest struct {
	PromptID       string                        `json:"promptId"`
	Title          string                        `json:"title"`
	Description    string                        `json:"description,omitempty"`
	Tags           []string                      `json:"tags,omitempty"`
	Version        string                        `json:"version,omitempty"`
	Content        string                        `json:"content"`
	VersionHistory []entities.VersionHistoryItem `json:"versionHistory,omitempty"`
	Status         entities.Status               `json:"status,omitempty"`
	CreatedBy      string                        `json:"createdBy"`
	UpdatedBy      string                        `json:"updatedBy,omitempty"`
}

// NewVersionRequest is the body of POST .../versions
type NewVersionRequest struct {
	Content   string `json:"content"`
	UpdatedBy string `json:"updatedBy"`
	Changelog string `json:"changelog,omitempty"`
}

// UpdateMetadataRequest is the body of PATCH .../documents/{id}
type UpdateMetadataRequest struct {
	entities.MetadataUpdate
	UpdatedBy string `json:"updatedBy"`
}

// ArchiveRequest is the body of POST .../documents/{id}/archive
type ArchiveRequest struct {
	UpdatedBy string `json:"updatedBy"`
}

// CreatePrompt handles POST /api/v1/users/{userID}/prompts
func (h *PromptHandler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req CreatePromptRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.CreatePromptCommand{
		UserID:         chi.URLParam(r, "userID"),
		PromptID:       req.PromptID,
		Title:          req.Title,
		Description:    req.Description,
		Tags:           req.Tags,
		Version:        req.Version,
		Content:        req.Content,
		VersionHistory: req.VersionHistory,
		Status:         req.Status,
		CreatedBy:      req.CreatedBy,
		UpdatedBy:      req.UpdatedBy,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, result)
}

// CreateNewVersion handles POST .../prompts/{promptID}/versions
func (h *PromptHandler) CreateNewVersion(w http.ResponseWriter, r *http.Request) {
	var req NewVersionRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.CreateNewVersionCommand{
		UserID:    chi.URLParam(r, "userID"),
		PromptID:  chi.URLParam(r, "promptID"),
		Content:   req.Content,
		UpdatedBy: req.UpdatedBy,
		Changelog: req.Changelog,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, result)
}

// UpdateMetadata handles PATCH .../documents/{id}
func (h *PromptHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var req UpdateMetadataRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.UpdatePromptMetadataCommand{
		ID:        chi.URLParam(r, "id"),
		UserID:    chi.URLParam(r, "userID"),
		PromptID:  chi.URLParam(r, "promptID"),
		Update:    req.MetadataUpdate,
		UpdatedBy: req.UpdatedBy,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ArchivePrompt handles POST .../documents/{id}/archive
func (h *PromptHandler) ArchivePrompt(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.ArchivePromptCommand{
		ID:        chi.URLParam(r, "id"),
		UserID:    chi.URLParam(r, "userID"),
		PromptID:  chi.URLParam(r, "promptID"),
		UpdatedBy: req.UpdatedBy,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// DeletePrompt handles DELETE .../documents/{id}
func (h *PromptHandler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	_, err := h.commandBus.Send(r.Context(), commands.DeletePromptCommand{
		ID:       chi.URLParam(r, "id"),
		UserID:   chi.URLParam(r, "userID"),
		PromptID: chi.URLParam(r, "promptID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReconcileLineage handles POST .../prompts/{promptID}/reconcile
func (h *PromptHandler) ReconcileLineage(w http.ResponseWriter, r *http.Request) {
	result, err := h.commandBus.Send(r.Context(), commands.ReconcileLineageCommand{
		UserID:   chi.URLParam(r, "userID"),
		PromptID: chi.URLParam(r, "promptID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	report := result.(*services.ReconcileReport)
	if report.Changed() {
		h.logger.Info("Lineage reconciled over HTTP",
			zap.String("userId", report.UserID),
			zap.String("promptId", report.PromptID),
			zap.Strings("promoted", report.Promoted),
			zap.Strings("demoted", report.Demoted),
		)
	}
	common.RespondJSON(w, http.StatusOK, report)
}

// GetLatestPrompt handles GET .../prompts/{promptID}
func (h *PromptHandler) GetLatestPrompt(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, queries.GetLatestPromptQuery{
		UserID:   chi.URLParam(r, "userID"),
		PromptID: chi.URLParam(r, "promptID"),
	}, "latest prompt")
}

// GetPromptVersion handles GET .../versions/{version}
func (h *PromptHandler) GetPromptVersion(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, queries.GetPromptVersionQuery{
		UserID:   chi.URLParam(r, "userID"),
		PromptID: chi.URLParam(r, "promptID"),
		Version:  chi.URLParam(r, "version"),
	}, "prompt version")
}

// GetPromptByID handles GET /api/v1/prompts/{id}
func (h *PromptHandler) GetPromptByID(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, queries.GetPromptByIDQuery{ID: chi.URLParam(r, "id")}, "prompt")
}

// GetAllPromptVersions handles GET .../prompts/{promptID}/versions
func (h *PromptHandler) GetAllPromptVersions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, queries.GetAllPromptVersionsQuery{
		UserID:   chi.URLParam(r, "userID"),
		PromptID: chi.URLParam(r, "promptID"),
	})
}

// GetUserPrompts handles GET /api/v1/users/{userID}/prompts
func (h *PromptHandler) GetUserPrompts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, queries.GetUserPromptsQuery{UserID: chi.URLParam(r, "userID")})
}

// FetchAllPrompts handles GET /api/v1/prompts
func (h *PromptHandler) FetchAllPrompts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, queries.FetchAllPromptsQuery{})
}

// single answers a lookup whose empty result is a 404
func (h *PromptHandler) single(w http.ResponseWriter, r *http.Request, q querybus.Query, resource string) {
	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	prompt, _ := result.(*entities.Prompt)
	if prompt == nil {
		h.errors.Handle(w, r, errors.NewNotFoundError(resource))
		return
	}
	common.RespondJSON(w, http.StatusOK, prompt)
}

// list answers a listing one page at a time
func (h *PromptHandler) list(w http.ResponseWriter, r *http.Request, q querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	prompts, _ := result.([]*entities.Prompt)
	if prompts == nil {
		prompts = []*entities.Prompt{}
	}
	page, pagination := common.Paginate(prompts, common.ExtractPaginationParams(r))
	common.RespondWithMeta(w, http.StatusOK, page, common.NewMeta(r, pagination))
}

func (h *PromptHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}
