package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add fact orders", "add_fact_orders"},
		{"Add-Fact-Orders", "add_fact_orders"},
		{"ADD_FACT_ORDERS", "add_fact_orders"},
		{"add__fact__orders", "add_fact_orders"},
		{"Add Watermarks 123", "add_watermarks_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	tmpDir := t.TempDir()

	mf, err := CreateMigration(tmpDir, "add fact orders")
	require.NoError(t, err)
	require.NotNil(t, mf)

	// Version is a sortable YYYYMMDDHHMMSS timestamp
	assert.Len(t, mf.Version, 14)

	assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))

	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)
	assert.True(t, strings.HasSuffix(upBase, "_add_fact_orders"))

	for _, path := range []string{mf.UpPath, mf.DownPath} {
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "add fact orders")
	}
}

func TestListMigrations(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing directory lists nothing", func(t *testing.T) {
		names, err := ListMigrations(filepath.Join(tmpDir, "nope"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	_, err := CreateMigration(tmpDir, "add fact orders")
	require.NoError(t, err)

	names, err := ListMigrations(tmpDir)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.True(t, strings.HasSuffix(names[0], "_add_fact_orders"))
}
