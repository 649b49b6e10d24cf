package handlers

import (
	"context"
	"net/http"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LinkService is the link use case surface used by the handler
type LinkService interface {
	Create(ctx context.Context, fromID, toID valueobjects.MechanicID, linkType string) (*entities.Link, error)
	List(ctx context.Context) ([]*entities.Link, error)
	ListFrom(ctx context.Context, fromID valueobjects.MechanicID) ([]*entities.Link, error)
	Delete(ctx context.Context, id valueobjects.LinkID) error
}

// LinkHandler handles link-related HTTP requests
type LinkHandler struct {
	base
	service LinkService
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(service LinkService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		base:    base{errors: errorHandler, logger: logger},
		service: service,
	}
}

// CreateLink handles POST /mechanics/links
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !h.decode(w, r, &req) {
		return
	}

	link, err := h.service.Create(r.Context(),
		valueobjects.MechanicID(req.FromID),
		valueobjects.MechanicID(req.ToID),
		req.Type,
	)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toLinkResponse(link))
}

// ListLinks handles GET /mechanics/links, optionally filtered by ?from_id=
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	var (
		links []*entities.Link
		err   error
	)

	if from := r.URL.Query().Get("from_id"); from != "" {
		fromID, parseErr := valueobjects.ParseMechanicID(from)
		if parseErr != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError(parseErr.Error()))
			return
		}
		links, err = h.service.ListFrom(r.Context(), fromID)
	} else {
		links, err = h.service.List(r.Context())
	}
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, toLinkResponse(l))
	}
	h.respondJSON(w, http.StatusOK, out)
}

// DeleteLink handles DELETE /mechanics/links/{linkID}
func (h *LinkHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
