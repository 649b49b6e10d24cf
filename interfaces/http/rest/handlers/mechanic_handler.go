package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"evotree-backend/application/queries"
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/pkg/common"
	pkgerrors "evotree-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MechanicService is the mechanic use case surface used by the handler
type MechanicService interface {
	Create(ctx context.Context, name string, description *string, year *int) (*entities.Mechanic, error)
	Get(ctx context.Context, id valueobjects.MechanicID) (*entities.Mechanic, error)
	List(ctx context.Context) ([]*entities.Mechanic, error)
	Update(ctx context.Context, id valueobjects.MechanicID, name string, description *string, year *int) (*entities.Mechanic, error)
	Delete(ctx context.Context, id valueobjects.MechanicID) error
}

// TreeQuery answers evolution tree queries
type TreeQuery interface {
	Handle(ctx context.Context, query queries.GetMechanicTreeQuery) (*queries.GetMechanicTreeResult, error)
}

// MechanicHandler handles mechanic-related HTTP requests
type MechanicHandler struct {
	base
	service MechanicService
	trees   TreeQuery
}

// NewMechanicHandler creates a new mechanic handler
func NewMechanicHandler(
	service MechanicService,
	trees TreeQuery,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *MechanicHandler {
	return &MechanicHandler{
		base:    base{errors: errorHandler, logger: logger},
		service: service,
		trees:   trees,
	}
}

// CreateMechanic handles POST /mechanics
func (h *MechanicHandler) CreateMechanic(w http.ResponseWriter, r *http.Request) {
	var req MechanicRequest
	if !h.decode(w, r, &req) {
		return
	}

	mechanic, err := h.service.Create(r.Context(), req.Name, req.Description, req.Year)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toMechanicResponse(mechanic))
}

// GetMechanic handles GET /mechanics/{mechanicID}
func (h *MechanicHandler) GetMechanic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mechanicID(w, r)
	if !ok {
		return
	}

	mechanic, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toMechanicResponse(mechanic))
}

// ListMechanics handles GET /mechanics
func (h *MechanicHandler) ListMechanics(w http.ResponseWriter, r *http.Request) {
	mechanics, err := h.service.List(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	out := make([]MechanicResponse, 0, len(mechanics))
	for _, m := range mechanics {
		out = append(out, toMechanicResponse(m))
	}
	h.respondJSON(w, http.StatusOK, out)
}

// UpdateMechanic handles PUT /mechanics/{mechanicID}
func (h *MechanicHandler) UpdateMechanic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mechanicID(w, r)
	if !ok {
		return
	}

	var req MechanicRequest
	if !h.decode(w, r, &req) {
		return
	}

	mechanic, err := h.service.Update(r.Context(), id, req.Name, req.Description, req.Year)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toMechanicResponse(mechanic))
}

// DeleteMechanic handles DELETE /mechanics/{mechanicID}
func (h *MechanicHandler) DeleteMechanic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mechanicID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTree handles GET /mechanics/{mechanicID}/tree.
// ?fresh=true bypasses the tree cache. A matching If-None-Match yields 304.
func (h *MechanicHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	id, ok := h.treeRootID(w, r)
	if !ok {
		return
	}

	fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))

	result, err := h.trees.Handle(r.Context(), queries.GetMechanicTreeQuery{RootID: id, SkipCache: fresh})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	etag := result.Version.ETag()
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if err := common.RespondRawJSON(w, http.StatusOK, result.JSON); err != nil {
		h.logger.Error("Failed to write tree", zap.Error(err))
	}
}

func (h *MechanicHandler) mechanicID(w http.ResponseWriter, r *http.Request) (valueobjects.MechanicID, bool) {
	id, err := valueobjects.ParseMechanicID(chi.URLParam(r, "mechanicID"))
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return 0, false
	}
	return id, true
}

// treeRootID accepts any integer. Ids that can never be assigned resolve to
// no mechanic, so they get the same 404 as an unknown root.
func (h *MechanicHandler) treeRootID(w http.ResponseWriter, r *http.Request) (valueobjects.MechanicID, bool) {
	raw := chi.URLParam(r, "mechanicID")
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(fmt.Sprintf("invalid mechanic id %q", raw)))
		return 0, false
	}
	if v <= 0 {
		h.errors.Handle(w, r, pkgerrors.NewNotFoundError("root node"))
		return 0, false
	}
	return valueobjects.MechanicID(v), true
}
