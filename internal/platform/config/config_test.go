package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv_fallbacks(t *testing.T) {
	t.Setenv("HW_STR", "")
	t.Setenv("HW_INT", "nope")
	t.Setenv("HW_FLOAT", "")
	t.Setenv("HW_DUR", "soon")

	assert.Equal(t, "x", GetEnv("HW_STR", "x"))
	assert.Equal(t, 7, GetEnvInt("HW_INT", 7))
	assert.Equal(t, 0.4, GetEnvFloat("HW_FLOAT", 0.4))
	assert.Equal(t, time.Second, GetEnvDuration("HW_DUR", time.Second))
}

func TestGetEnv_values(t *testing.T) {
	t.Setenv("HW_STR", "y")
	t.Setenv("HW_INT", "12")
	t.Setenv("HW_FLOAT", "0.65")
	t.Setenv("HW_DUR", "250ms")

	assert.Equal(t, "y", GetEnv("HW_STR", "x"))
	assert.Equal(t, 12, GetEnvInt("HW_INT", 7))
	assert.Equal(t, 0.65, GetEnvFloat("HW_FLOAT", 0.4))
	assert.Equal(t, 250*time.Millisecond, GetEnvDuration("HW_DUR", time.Second))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("HW_LIST", " car, ,truck ,")
	assert.Equal(t, []string{"car", "truck"}, GetEnvList("HW_LIST", nil))

	t.Setenv("HW_LIST", " , ")
	assert.Equal(t, []string{"a"}, GetEnvList("HW_LIST", []string{"a"}))
}

func TestFromEnv_defaults(t *testing.T) {
	for _, k := range []string{"PORT", "HAZARD_LABELS", "CLASSIFIER_CONFIDENCE", "STATUS_POLL_INTERVAL", "ANNOUNCE_POLICY"} {
		t.Setenv(k, "")
	}
	s := FromEnv()
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, DefaultHazardLabels, s.HazardLabels)
	assert.Equal(t, 0.4, s.ClassifierConfidence)
	assert.Equal(t, 300*time.Millisecond, s.StatusPollInterval)
	assert.Equal(t, "drop-newest", s.AnnouncePolicy)
}

func TestLoad_dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HW_FROM_DOTENV=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("HW_FROM_DOTENV") })

	require.NoError(t, Load(path))
	assert.Equal(t, "loaded", GetEnv("HW_FROM_DOTENV", ""))
}

func TestLoad_missing_file(t *testing.T) {
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.env")))
}
