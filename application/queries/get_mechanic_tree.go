package queries

import (
	"errors"

	"evotree-backend/domain/core/aggregates"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/domain/versioning"
)

// GetMechanicTreeQuery asks for the evolution tree rooted at a mechanic
type GetMechanicTreeQuery struct {
	RootID valueobjects.MechanicID

	// SkipCache forces a fresh build; the result still refreshes the cache
	SkipCache bool
}

// Validate validates the GetMechanicTreeQuery
func (q GetMechanicTreeQuery) Validate() error {
	if q.RootID <= 0 {
		return errors.New("root ID must be positive")
	}
	return nil
}

// GetMechanicTreeResult carries the tree together with its JSON encoding
type GetMechanicTreeResult struct {
	Tree    *aggregates.TreeNode
	JSON    []byte
	Version versioning.TreeVersion
	Cached  bool
}
