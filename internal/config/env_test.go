package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
IDSCAN_T_KEY1=value1
IDSCAN_T_KEY2="quoted value"
IDSCAN_T_KEY3='single quoted'
# Comment
not a pair
IDSCAN_T_KEY4=value4
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	for _, k := range []string{"IDSCAN_T_KEY1", "IDSCAN_T_KEY2", "IDSCAN_T_KEY3", "IDSCAN_T_KEY4"} {
		os.Unsetenv(k)
		defer os.Unsetenv(k)
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "value1", os.Getenv("IDSCAN_T_KEY1"))
	assert.Equal(t, "quoted value", os.Getenv("IDSCAN_T_KEY2"))
	assert.Equal(t, "single quoted", os.Getenv("IDSCAN_T_KEY3"))
	assert.Equal(t, "value4", os.Getenv("IDSCAN_T_KEY4"))
}

func TestLoadEnvFile_DoesNotOverride(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`EXISTING_KEY=new_value`), 0644))

	t.Setenv("EXISTING_KEY", "original_value")

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original_value", os.Getenv("EXISTING_KEY"), "existing env vars must win")
}

func TestGetEnvWithFallback(t *testing.T) {
	os.Unsetenv("FALLBACK_KEY1")
	os.Unsetenv("FALLBACK_KEY2")

	assert.Empty(t, GetEnvWithFallback("FALLBACK_KEY1", "FALLBACK_KEY2"))

	t.Setenv("FALLBACK_KEY2", "value2")
	assert.Equal(t, "value2", GetEnvWithFallback("FALLBACK_KEY1", "FALLBACK_KEY2"))

	t.Setenv("FALLBACK_KEY1", "value1")
	assert.Equal(t, "value1", GetEnvWithFallback("FALLBACK_KEY1", "FALLBACK_KEY2"))
}

func TestGetEnvDefault(t *testing.T) {
	os.Unsetenv("DEFAULT_TEST_KEY")
	assert.Equal(t, "default", GetEnvDefault("DEFAULT_TEST_KEY", "default"))

	t.Setenv("DEFAULT_TEST_KEY", "actual")
	assert.Equal(t, "actual", GetEnvDefault("DEFAULT_TEST_KEY", "default"))
}

func TestResolveEnvWithAliases(t *testing.T) {
	os.Unsetenv("IDSCAN_OCR_LANGUAGE")
	t.Setenv("TESSERACT_LANG", "deu")
	assert.Equal(t, "deu", ResolveEnvWithAliases("IDSCAN_OCR_LANGUAGE"))

	t.Setenv("IDSCAN_OCR_LANGUAGE", "fra")
	assert.Equal(t, "fra", ResolveEnvWithAliases("IDSCAN_OCR_LANGUAGE"), "canonical key beats alias")

	assert.Empty(t, ResolveEnvWithAliases("IDSCAN_UNKNOWN_KEY"))
}
