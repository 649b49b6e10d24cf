package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"evotree-backend/domain/core/aggregates"
)

// TreeVersion summarizes one materialized evolution tree
type TreeVersion struct {
	RootID    int64  `json:"root_id"`
	Checksum  string `json:"checksum"`
	NodeCount int    `json:"node_count"`
	Depth     int    `json:"depth"`
	Cycles    int    `json:"cycles"`
}

// NewTreeVersion computes the version of tree from its JSON encoding
func NewTreeVersion(tree *aggregates.TreeNode) (TreeVersion, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return TreeVersion{}, fmt.Errorf("failed to encode tree: %w", err)
	}
	return NewTreeVersionFromJSON(tree, data), nil
}

// NewTreeVersionFromJSON computes the version when the encoding is already at hand
func NewTreeVersionFromJSON(tree *aggregates.TreeNode, data []byte) TreeVersion {
	cycles := 0
	tree.Walk(func(node *aggregates.TreeNode, _ int) {
		if node.Cycle {
			cycles++
		}
	})

	return TreeVersion{
		RootID:    tree.ID.Int64(),
		Checksum:  Checksum(data),
		NodeCount: tree.Size(),
		Depth:     tree.Depth(),
		Cycles:    cycles,
	}
}

// Checksum returns the hex sha256 of data
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ETag formats a checksum as a strong HTTP entity tag
func (v TreeVersion) ETag() string {
	return `"` + v.Checksum[:32] + `"`
}
