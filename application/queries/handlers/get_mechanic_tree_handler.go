package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"evotree-backend/application/ports"
	"evotree-backend/application/queries"
	"evotree-backend/domain/core/aggregates"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/domain/versioning"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// buildTimeout bounds a shared build that no longer follows any caller's context
const buildTimeout = 30 * time.Second

// TreeBuilder builds a tree from current storage
type TreeBuilder interface {
	BuildTree(ctx context.Context, rootID valueobjects.MechanicID) (*aggregates.TreeNode, error)
}

// GetMechanicTreeHandler serves tree queries through the tree cache.
// Concurrent misses for the same root share one build.
type GetMechanicTreeHandler struct {
	builder TreeBuilder
	cache   ports.Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics *observability.Collector
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// NewGetMechanicTreeHandler creates a new tree query handler. cache may be nil.
func NewGetMechanicTreeHandler(
	builder TreeBuilder,
	cache ports.Cache,
	ttl time.Duration,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *GetMechanicTreeHandler {
	return &GetMechanicTreeHandler{
		builder: builder,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
}

// Handle executes the tree query
func (h *GetMechanicTreeHandler) Handle(ctx context.Context, query queries.GetMechanicTreeQuery) (*queries.GetMechanicTreeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	key := TreeCacheKey(query.RootID)

	if !query.SkipCache {
		if result, ok := h.fromCache(ctx, key); ok {
			return result, nil
		}
	}

	ch := h.group.DoChan(key, func() (interface{}, error) {
		// the build is shared, so one caller going away must not cancel it
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		return h.build(buildCtx, query.RootID, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			h.logger.Debug("Shared evolution tree build", zap.Int64("rootID", query.RootID.Int64()))
		}
		return res.Val.(*queries.GetMechanicTreeResult), nil
	}
}

// TreeCacheKey is the cache key of the tree rooted at id
func TreeCacheKey(id valueobjects.MechanicID) string {
	return "tree:" + id.String()
}

func (h *GetMechanicTreeHandler) fromCache(ctx context.Context, key string) (*queries.GetMechanicTreeResult, bool) {
	if h.cache == nil {
		return nil, false
	}

	data, found, err := h.cache.Get(ctx, key)
	if err != nil {
		h.metrics.IncrementCounter("cache_errors")
		h.logger.Warn("Tree cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		h.metrics.IncrementCounter("cache_misses")
		return nil, false
	}

	var tree aggregates.TreeNode
	if err := json.Unmarshal(data, &tree); err != nil {
		h.metrics.IncrementCounter("cache_errors")
		h.logger.Warn("Discarding undecodable cached tree", zap.String("key", key), zap.Error(err))
		_ = h.cache.Delete(ctx, key)
		return nil, false
	}

	h.metrics.IncrementCounter("cache_hits")
	return &queries.GetMechanicTreeResult{
		Tree:    &tree,
		JSON:    data,
		Version: versioning.NewTreeVersionFromJSON(&tree, data),
		Cached:  true,
	}, true
}

func (h *GetMechanicTreeHandler) build(ctx context.Context, rootID valueobjects.MechanicID, key string) (*queries.GetMechanicTreeResult, error) {
	start := time.Now()

	// read before loading the graph so a write landing during the build
	// keeps its result out of the cache
	gen, genErr := h.generation(ctx)

	var tree *aggregates.TreeNode
	err := h.tracer.TraceFunction(ctx, "BuildTree", func(ctx context.Context) error {
		h.tracer.AddAnnotation(ctx, "rootID", rootID.Int64())

		var err error
		tree, err = h.builder.BuildTree(ctx, rootID)
		return err
	})
	if err != nil {
		result := "error"
		if pkgerrors.IsNotFound(err) {
			result = "not_found"
		}
		h.metrics.ObserveTreeBuild(result, time.Since(start), 0)
		return nil, err
	}

	data, err := json.Marshal(tree)
	if err != nil {
		h.metrics.ObserveTreeBuild("error", time.Since(start), 0)
		return nil, fmt.Errorf("failed to encode tree %d: %w", rootID, err)
	}

	version := versioning.NewTreeVersionFromJSON(tree, data)
	h.metrics.ObserveTreeBuild("ok", time.Since(start), version.NodeCount)

	if genErr == nil {
		h.store(ctx, gen, key, data)
	}

	return &queries.GetMechanicTreeResult{
		Tree:    tree,
		JSON:    data,
		Version: version,
	}, nil
}

// generation reads the cache generation when the cache tracks one
func (h *GetMechanicTreeHandler) generation(ctx context.Context) (uint64, error) {
	gc, ok := h.cache.(ports.GenerationCache)
	if !ok {
		return 0, nil
	}
	gen, err := gc.Generation(ctx)
	if err != nil {
		h.metrics.IncrementCounter("cache_errors")
		h.logger.Warn("Tree cache generation read failed", zap.Error(err))
	}
	return gen, err
}

func (h *GetMechanicTreeHandler) store(ctx context.Context, gen uint64, key string, data []byte) {
	if h.cache == nil || h.ttl <= 0 {
		return
	}

	gc, ok := h.cache.(ports.GenerationCache)
	if !ok {
		if err := h.cache.Set(ctx, key, data, h.ttl); err != nil {
			h.metrics.IncrementCounter("cache_errors")
			h.logger.Warn("Tree cache write failed", zap.String("key", key), zap.Error(err))
		}
		return
	}

	stored, err := gc.SetIfGeneration(ctx, gen, key, data, h.ttl)
	if err != nil {
		h.metrics.IncrementCounter("cache_errors")
		h.logger.Warn("Tree cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		h.logger.Debug("Dropped tree built before a cache invalidation", zap.String("key", key))
	}
}
