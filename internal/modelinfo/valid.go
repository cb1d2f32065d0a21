// Package modelinfo classifies host models for object placement.
package modelinfo

import "github.com/objectstream/streamer/pkg/core"

// Model id ranges that crash the host when placed as objects.
const (
	clothingFirst core.ModelID = 384
	clothingLast  core.ModelID = 397
	cutsceneFirst core.ModelID = 300
	cutsceneLast  core.ModelID = 314
)

// Classifier answers model questions against the host metadata service.
type Classifier struct {
	catalog core.ModelCatalog
}

// NewClassifier creates a Classifier backed by catalog.
func NewClassifier(catalog core.ModelCatalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// IsValidModel reports whether id can be placed as an object.
func (c *Classifier) IsValidModel(id core.ModelID) bool {
	if id >= c.catalog.BaseIDForTXD() {
		return false
	}

	// clothes and hands
	if clothingFirst <= id && id <= clothingLast {
		return false
	}

	// cutscene objects
	if cutsceneFirst <= id && id <= cutsceneLast {
		return false
	}

	info, ok := c.catalog.ModelInfo(id)
	if !ok || info == nil || !info.HasInterface() {
		return false
	}

	if !info.IsAllocatedInArchive() {
		return false
	}

	switch info.ModelType() {
	case core.ModelTypeClump, core.ModelTypeAtomic, core.ModelTypeWeapon, core.ModelTypeTime:
		return true
	default:
		return false
	}
}
