package engine

import "github.com/reposcope/reposcope/pkg/types"

// Decision classifies one file relative to the prior snapshot.
type Decision int

const (
	// DecisionAdded means the path has no prior record.
	DecisionAdded Decision = iota
	// DecisionUpdated means the path has a prior record but its fingerprint
	// changed; old chunks must be purged before new ones are inserted.
	DecisionUpdated
	// DecisionUnchanged means the file is already covered by the prior index.
	DecisionUnchanged
)

func (d Decision) String() string {
	switch d {
	case DecisionAdded:
		return "added"
	case DecisionUpdated:
		return "updated"
	case DecisionUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Decide applies the delta decision to one file. A file is unchanged only when
// hash and size match and the stored modification time is not older than the
// current one; any other combination re-indexes the file.
func Decide(prior *types.FileMeta, current types.FileMeta) Decision {
	if prior == nil {
		return DecisionAdded
	}
	if prior.ContentHash == current.ContentHash &&
		prior.FileSize == current.FileSize &&
		!prior.LastModified.Before(current.LastModified) {
		return DecisionUnchanged
	}
	return DecisionUpdated
}
