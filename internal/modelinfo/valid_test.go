package modelinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/objectstream/streamer/pkg/core"
)

type fakeInfo struct {
	iface     bool
	loaded    bool
	archive   bool
	modelType core.ModelType
}

func (f fakeInfo) HasInterface() bool         { return f.iface }
func (f fakeInfo) IsLoaded() bool             { return f.loaded }
func (f fakeInfo) IsAllocatedInArchive() bool { return f.archive }
func (f fakeInfo) ModelType() core.ModelType  { return f.modelType }

type fakeCatalog struct {
	base  core.ModelID
	infos map[core.ModelID]core.ModelInfo
}

func (c fakeCatalog) ModelInfo(id core.ModelID) (core.ModelInfo, bool) {
	info, ok := c.infos[id]
	return info, ok
}

func (c fakeCatalog) BaseIDForTXD() core.ModelID { return c.base }

var placeable = fakeInfo{iface: true, loaded: true, archive: true, modelType: core.ModelTypeClump}

func TestIsValidModel(t *testing.T) {
	catalog := fakeCatalog{
		base: 20000,
		infos: map[core.ModelID]core.ModelInfo{
			299:   placeable,
			300:   placeable,
			305:   placeable,
			314:   placeable,
			315:   placeable,
			383:   placeable,
			384:   placeable,
			390:   placeable,
			397:   placeable,
			398:   placeable,
			1337:  placeable,
			1338:  fakeInfo{iface: true, archive: false, modelType: core.ModelTypeClump},
			1339:  fakeInfo{iface: false, archive: true, modelType: core.ModelTypeClump},
			1340:  fakeInfo{iface: true, archive: true, modelType: core.ModelTypeAtomic},
			1341:  fakeInfo{iface: true, archive: true, modelType: core.ModelTypeWeapon},
			1342:  fakeInfo{iface: true, archive: true, modelType: core.ModelTypeTime},
			1343:  fakeInfo{iface: true, archive: true, modelType: core.ModelTypeVehicle},
			1344:  fakeInfo{iface: true, archive: true, modelType: core.ModelTypePed},
			20000: placeable,
			20001: placeable,
		},
	}
	c := NewClassifier(catalog)

	tests := []struct {
		name  string
		model core.ModelID
		want  bool
	}{
		{"clump in archive", 1337, true},
		{"not in archive", 1338, false},
		{"no interface", 1339, false},
		{"atomic", 1340, true},
		{"weapon", 1341, true},
		{"time", 1342, true},
		{"vehicle rejected", 1343, false},
		{"ped rejected", 1344, false},
		{"no metadata", 1500, false},
		{"clothing lower bound", 384, false},
		{"clothing middle", 390, false},
		{"clothing upper bound", 397, false},
		{"below clothing", 383, true},
		{"above clothing", 398, true},
		{"cutscene lower bound", 300, false},
		{"cutscene middle", 305, false},
		{"cutscene upper bound", 314, false},
		{"below cutscene", 299, true},
		{"above cutscene", 315, true},
		{"txd base", 20000, false},
		{"past txd base", 20001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsValidModel(tt.model))
		})
	}
}

func TestIsValidModel_NilInfo(t *testing.T) {
	c := NewClassifier(fakeCatalog{base: 100, infos: map[core.ModelID]core.ModelInfo{5: nil}})
	assert.False(t, c.IsValidModel(5))
}
