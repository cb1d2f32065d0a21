package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Session", &Session{}, "sessions"},
		{"LimitSnapshot", &LimitSnapshot{}, "limit_snapshots"},
		{"LimitWarning", &LimitWarning{}, "limit_warnings"},
		{"ResidencyCheck", &ResidencyCheck{}, "residency_checks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels(t *testing.T) {
	assert.Len(t, DatabaseModels, 4)
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T has a table name", m)
	}
}
