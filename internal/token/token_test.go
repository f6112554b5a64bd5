package token

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeValidation(t *testing.T) {
	assert.True(t, DeviceToken("<Device>abc==</Device>").Valid())
	assert.False(t, DeviceToken("abc==").Valid())
	assert.False(t, DeviceToken("<Device></Device>").Valid())
}

func TestGetFallsBackToConstant(t *testing.T) {
	dir := t.TempDir()
	p := NewProvider(filepath.Join(dir, "token.cache"), nil)

	tok := p.Get(context.Background(), GetOptions{})
	assert.True(t, tok.Valid())
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "token.cache")

	want := DeviceToken("<Device>dGVzdA==</Device>")
	require.NoError(t, os.WriteFile(cachePath, []byte(want), 0o644))

	p := NewProvider(cachePath, nil)
	got := p.Get(context.Background(), GetOptions{})
	assert.Equal(t, want, got)
}

func TestSkipCacheIgnoresExistingFile(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "token.cache")
	require.NoError(t, os.WriteFile(cachePath, []byte("<Device>cached==</Device>"), 0o644))

	p := NewProvider(cachePath, nil)
	tok := p.Get(context.Background(), GetOptions{SkipCache: true})
	assert.True(t, tok.Valid())
	assert.NotEqual(t, DeviceToken("<Device>cached==</Device>"), tok)
}
