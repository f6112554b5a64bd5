package displaycatalog

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

func TestQueryPromotesSingularProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Product":{"ProductId":"9NKSQGP7F2NH","DisplaySkuAvailabilities":[{"Sku":{"Properties":{"FulfillmentData":{"WuCategoryId":"abc-123"}}}}]}}`))
	}))
	defer srv.Close()

	client := New(httpx.New(cv.New(), 5*time.Second))
	result, err := client.Query(context.Background(), "9NKSQGP7F2NH", "US", "en", Production, srv.URL, srv.URL)
	require.NoError(t, err)

	assert.True(t, result.IsFound())
	require.Len(t, result.Products, 1)
	wuCat, ok := result.WuCategoryId()
	assert.True(t, ok)
	assert.Equal(t, "abc-123", wuCat)
}

func TestQueryNotFoundWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Products":[]}`))
	}))
	defer srv.Close()

	client := New(httpx.New(cv.New(), 5*time.Second))
	result, err := client.Query(context.Background(), "nope", "US", "en", Production, srv.URL, srv.URL)
	require.NoError(t, err)
	assert.False(t, result.IsFound())
}
