// Package displaycatalog implements DisplayCatalogClient (spec C5): a
// REST query against the Microsoft DisplayCatalog service for MSIX/AppX
// product listings.
package displaycatalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aggregator-project/msdelivery/internal/httpx"
	"github.com/aggregator-project/msdelivery/internal/localearch"
	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

const component = "displaycatalog"

// Endpoint selects which DisplayCatalog environment to query.
type Endpoint int

const (
	Production Endpoint = iota
	Int
)

// Product is the subset of a DisplayCatalog product entry this toolkit
// consumes.
type Product struct {
	ProductId               string                     `json:"ProductId"`
	LocalizedProperties     []LocalizedProperties      `json:"LocalizedProperties"`
	DisplaySkuAvailabilities []DisplaySkuAvailability `json:"DisplaySkuAvailabilities"`
}

// LocalizedProperties carries display/localization fields.
type LocalizedProperties struct {
	ProductTitle string `json:"ProductTitle"`
	PublisherName string `json:"PublisherName"`
	ShortDescription string `json:"ShortDescription"`
}

// DisplaySkuAvailability carries the per-SKU fulfillment data this toolkit
// reads WuCategoryId from.
type DisplaySkuAvailability struct {
	Sku Sku `json:"Sku"`
}

// Sku holds the nested Properties.FulfillmentData used by the MSIX/AppX
// path of C8 step 3.
type Sku struct {
	Properties SkuProperties `json:"Properties"`
}

type SkuProperties struct {
	FulfillmentData FulfillmentData `json:"FulfillmentData"`
}

type FulfillmentData struct {
	WuCategoryId string `json:"WuCategoryId"`
}

// Result is the decoded query result. IsFound iff Products is non-empty.
type Result struct {
	Products []Product `json:"Products"`
}

// rawResult mirrors the wire shape before the singular "Product"
// promotion spec §4.5 requires.
type rawResult struct {
	Product  json.RawMessage `json:"Product"`
	Products []Product       `json:"Products"`
}

func (r Result) IsFound() bool {
	return len(r.Products) > 0
}

// WuCategoryId extracts DisplaySkuAvailabilities[0].Sku.Properties.
// FulfillmentData.WuCategoryId from the first product, per C8 step 3.
func (r Result) WuCategoryId() (string, bool) {
	if !r.IsFound() {
		return "", false
	}
	avail := r.Products[0].DisplaySkuAvailabilities
	if len(avail) == 0 {
		return "", false
	}
	id := avail[0].Sku.Properties.FulfillmentData.WuCategoryId
	return id, id != ""
}

// Client queries DisplayCatalog.
type Client struct {
	http *httpx.Client
}

func New(http *httpx.Client) *Client {
	return &Client{http: http}
}

func baseURL(endpoint Endpoint, production, intURL string) string {
	if endpoint == Int {
		return intURL
	}
	return production
}

// Query fetches a single product. market/language feed the
// localearch.QueryFragment per spec §4.5's URL template.
func (c *Client) Query(ctx context.Context, productId, market, language string, endpoint Endpoint, productionBase, intBase string) (Result, error) {
	base := baseURL(endpoint, productionBase, intBase)
	uri := fmt.Sprintf("%s/%s?%s", base, productId, localearch.QueryFragment(market, language, true))

	resp, err := c.http.Get(ctx, uri, nil)
	if err != nil {
		return Result{}, toolkiterr.New(component, toolkiterr.Transport, err)
	}

	if !resp.IsSuccess() {
		return Result{}, toolkiterr.New(component, toolkiterr.Transport,
			fmt.Errorf("displaycatalog: unexpected status %d for %s", resp.StatusCode, productId))
	}

	var raw rawResult
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return Result{}, toolkiterr.New(component, toolkiterr.Decode, err)
	}

	result := Result{Products: raw.Products}

	// Promote a singular "Product" object into a one-element Products
	// array when the server returned that shape instead (spec §4.5).
	if len(result.Products) == 0 && len(raw.Product) > 0 && string(raw.Product) != "null" {
		var single Product
		if err := json.Unmarshal(raw.Product, &single); err != nil {
			return Result{}, toolkiterr.New(component, toolkiterr.Decode, err)
		}
		result.Products = []Product{single}
	}

	return result, nil
}
