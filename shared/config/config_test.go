package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("AUCTION_TEST_STR", "value")
	t.Setenv("AUCTION_TEST_BLANK", "   ")

	assert.Equal(t, "value", GetEnv("AUCTION_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("AUCTION_TEST_BLANK", "fallback"))
	assert.Equal(t, "fallback", GetEnv("AUCTION_TEST_UNSET", "fallback"))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("AUCTION_TEST_INT", "42")
	t.Setenv("AUCTION_TEST_BAD_INT", "forty-two")
	t.Setenv("AUCTION_TEST_FLOAT", "2.5")
	t.Setenv("AUCTION_TEST_BOOL", "true")

	assert.Equal(t, 42, GetEnvInt("AUCTION_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("AUCTION_TEST_BAD_INT", 1))
	assert.Equal(t, 2.5, GetEnvFloat("AUCTION_TEST_FLOAT", 0))
	assert.True(t, GetEnvBool("AUCTION_TEST_BOOL", false))
	assert.False(t, GetEnvBool("AUCTION_TEST_UNSET", false))
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "250ms", want: 250 * time.Millisecond},
		{name: "bare seconds", value: "15", want: 15 * time.Second},
		{name: "fractional seconds", value: "0.5", want: 500 * time.Millisecond},
		{name: "garbage", value: "soon", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUCTION_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, GetEnvDuration("AUCTION_TEST_DURATION", time.Minute))
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AUCTION_DOTENV_NEW=from-file\nAUCTION_DOTENV_SET=from-file\n"), 0o600))

	t.Setenv("AUCTION_DOTENV_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("AUCTION_DOTENV_NEW") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("AUCTION_DOTENV_NEW"))
	assert.Equal(t, "from-env", os.Getenv("AUCTION_DOTENV_SET"))
}
