package ptt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirectory(t *testing.T) {
	d := DefaultDirectory()

	popular := d.Popular()
	require.Len(t, popular, 18)
	assert.Equal(t, "Stock", popular[0].Name)
	assert.Equal(t, "股票討論版", popular[0].Description)
	assert.Equal(t, "Food", popular[17].Name)

	for _, b := range []string{"Stock", "Gossiping", "C_Chat", "nba", "Boy-Girl", "Food"} {
		assert.True(t, d.InFallback(b), "fallback should contain %s", b)
	}
	assert.False(t, d.InFallback("stock"), "fallback is case-sensitive")
	assert.False(t, d.InFallback("NoSuchBoard"))
}

func TestDirectory_PopularIsCopy(t *testing.T) {
	d := DefaultDirectory()
	p := d.Popular()
	p[0].Name = "Changed"
	assert.Equal(t, "Stock", d.Popular()[0].Name)
}

func TestLoadDirectory_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards.yaml")
	data := []byte("popular:\n  - name: Soft_Job\n    description: 軟體工作版\nfallback:\n  - Soft_Job\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	d, err := LoadDirectory(path)
	require.NoError(t, err)
	require.Len(t, d.Popular(), 1)
	assert.Equal(t, "Soft_Job", d.Popular()[0].Name)
	assert.True(t, d.InFallback("Soft_Job"))
	assert.False(t, d.InFallback("Stock"))
}

func TestLoadDirectory_EmptyPathUsesDefault(t *testing.T) {
	d, err := LoadDirectory("")
	require.NoError(t, err)
	assert.Len(t, d.Popular(), 18)
}

func TestLoadDirectory_Errors(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseDirectory([]byte("popular: [unclosed"))
	assert.Error(t, err)

	_, err = ParseDirectory([]byte("popular:\n  - name: \"\"\n"))
	assert.Error(t, err)

	_, err = ParseDirectory([]byte("fallback:\n  - \"  \"\n"))
	assert.Error(t, err)
}
