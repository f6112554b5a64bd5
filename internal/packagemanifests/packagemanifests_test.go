package packagemanifests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggregator-project/msdelivery/internal/cv"
	"github.com/aggregator-project/msdelivery/internal/httpx"
)

func TestQueryUppercasesBigId(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"PackageIdentifier":"Foo.Bar","Versions":[{"PackageVersion":"1.0","Installers":[{"InstallerType":"exe"}]}]}`))
	}))
	defer srv.Close()

	client := New(httpx.New(cv.New(), 5*time.Second))
	result, err := client.QueryWithBase(context.Background(), srv.URL, "xpfm306ts4phh5", "US")
	require.NoError(t, err)
	assert.True(t, result.IsFound())
	assert.Contains(t, gotPath, "XPFM306TS4PHH5")
}

func TestQuery404IsNotFoundNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(httpx.New(cv.New(), 5*time.Second))
	result, err := client.QueryWithBase(context.Background(), srv.URL, "nope", "")
	require.NoError(t, err)
	assert.False(t, result.IsFound())
}

func TestIsMSStoreDiscriminator(t *testing.T) {
	m := Manifest{Versions: []Version{{Installers: []Installer{{InstallerType: "MSStore"}}}}}
	assert.True(t, m.IsMSStore())

	m2 := Manifest{Versions: []Version{{Installers: []Installer{{InstallerType: "exe"}}}}}
	assert.False(t, m2.IsMSStore())
}
