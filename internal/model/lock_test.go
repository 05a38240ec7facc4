package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/herd/internal/model"
)

func TestFileLockConflictsWith(t *testing.T) {
	tests := map[string]struct {
		held        []string
		requested   []string
		expConflict bool
	}{
		"A whole-file lease should conflict with any request": {
			held:        []string{model.MethodWildcard},
			requested:   []string{"foo"},
			expConflict: true,
		},

		"A whole-file request should conflict with any lease": {
			held:        []string{"foo"},
			requested:   []string{model.MethodWildcard},
			expConflict: true,
		},

		"An empty method list should mean whole file": {
			held:        []string{"foo"},
			requested:   nil,
			expConflict: true,
		},

		"Intersecting method sets should conflict": {
			held:        []string{"foo", "bar"},
			requested:   []string{"bar", "baz"},
			expConflict: true,
		},

		"Disjoint method sets should not conflict": {
			held:        []string{"foo"},
			requested:   []string{"bar"},
			expConflict: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			l := model.FileLock{Methods: test.held}
			assert.Equal(t, test.expConflict, l.ConflictsWith(test.requested))
		})
	}
}

func TestFileLockMergeMethods(t *testing.T) {
	tests := map[string]struct {
		held       []string
		requested  []string
		expMethods []string
	}{
		"Disjoint sets should union keeping order": {
			held:       []string{"foo"},
			requested:  []string{"bar"},
			expMethods: []string{"foo", "bar"},
		},

		"Overlapping sets should deduplicate": {
			held:       []string{"foo", "bar"},
			requested:  []string{"bar", "baz"},
			expMethods: []string{"foo", "bar", "baz"},
		},

		"A wildcard on either side should collapse to the wildcard": {
			held:       []string{"foo"},
			requested:  []string{model.MethodWildcard},
			expMethods: []string{model.MethodWildcard},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			l := model.FileLock{Methods: test.held}
			l.MergeMethods(test.requested)
			assert.Equal(t, test.expMethods, l.Methods)
		})
	}
}

func TestFileLockExpired(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	l := model.FileLock{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, l.Expired(now))
	assert.True(t, l.Expired(now.Add(2*time.Minute)))
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]struct {
		path    string
		expPath string
	}{
		"Forward slash paths should stay untouched":       {path: "src/api/handler.go", expPath: "src/api/handler.go"},
		"Backslash separators should be normalized":       {path: `src\api\handler.go`, expPath: "src/api/handler.go"},
		"Relative prefixes should be cleaned":             {path: "./src/handler.go", expPath: "src/handler.go"},
		"Duplicated separators should collapse":           {path: "src//api/handler.go", expPath: "src/api/handler.go"},
		"Inner parent references should resolve":          {path: "src/api/../handler.go", expPath: "src/handler.go"},
		"Already normalized single files should be clean": {path: "main.go", expPath: "main.go"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expPath, model.NormalizePath(test.path))
		})
	}
}
