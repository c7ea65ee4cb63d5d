package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, "sqlite", c1.Store.Driver)
	assert.Equal(t, PersistWriteBack, c1.Scoring.Persist)
	assert.Equal(t, DefaultTopLimit, c1.Query.TopLimit)

	c1.Scoring.Workers = 2
	c1.Scoring.Persist = PersistNone
	c1.Query.SuspiciousMinRisk = 50

	require.NoError(t, Save(dir, c1))

	c2, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, c2.Scoring.Workers)
	assert.Equal(t, PersistNone, c2.Scoring.Persist)
	assert.Equal(t, 50.0, c2.Query.SuspiciousMinRisk)
}

func TestReadOrCreate_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	_, err := ReadOrCreate(dir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, configFileName))
	assert.NoError(t, err)
}

func TestReadOrCreate_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("scoring:\n  persist: sometimes\n"), fileMode))
	_, err := ReadOrCreate(dir)
	assert.Error(t, err)

	_, err = ReadOrCreate("")
	assert.Error(t, err)
}

func TestValidate_FillsDefaults(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.Validate())
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Positive(t, c.Scoring.Workers)
	assert.Equal(t, PersistNone, c.Scoring.Persist)
	assert.Equal(t, DefaultTopLimit, c.Query.TopLimit)
	assert.Equal(t, DefaultServerAddress, c.Server.Address)
}

func TestValidate_Ranges(t *testing.T) {
	c := Default()
	c.Query.SuspiciousMinVolume = 101
	assert.Error(t, c.Validate())

	var nilConfig *Config
	assert.Error(t, nilConfig.Validate())
}

func TestParsePersistStrategy(t *testing.T) {
	p, err := ParsePersistStrategy("WriteBack")
	require.NoError(t, err)
	assert.Equal(t, PersistWriteBack, p)

	p, err = ParsePersistStrategy("")
	require.NoError(t, err)
	assert.Equal(t, PersistNone, p)

	_, err = ParsePersistStrategy("maybe")
	assert.Error(t, err)
}

func TestSave_Errors(t *testing.T) {
	assert.Error(t, Save("", Default()))
	assert.Error(t, Save(t.TempDir(), nil))
}

func TestGetOrCreateHomeDir_EmptyName(t *testing.T) {
	_, _, err := GetOrCreateHomeDir("")
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("RELSCORE_TEST_A=from-env\nRELSCORE_TEST_B=from-env\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("RELSCORE_TEST_C=from-local\n"), 0600))

	t.Setenv("RELSCORE_TEST_A", "preset")
	t.Setenv("RELSCORE_TEST_B", "")
	os.Unsetenv("RELSCORE_TEST_B")
	t.Setenv("RELSCORE_TEST_C", "")
	os.Unsetenv("RELSCORE_TEST_C")

	loaded := LoadEnv("", dir, filepath.Join(dir, "missing"))
	assert.Len(t, loaded, 2)
	assert.Equal(t, "preset", os.Getenv("RELSCORE_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("RELSCORE_TEST_B"))
	assert.Equal(t, "from-local", os.Getenv("RELSCORE_TEST_C"))
}

func TestHomeDir(t *testing.T) {
	t.Setenv("HOME", "/tmp/home")
	assert.Equal(t, filepath.Join("/tmp/home", ".relscore"), HomeDir("relscore"))
	assert.Equal(t, filepath.Join("/tmp/home", ".relscore"), HomeDir(".relscore"))
}
