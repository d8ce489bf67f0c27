package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"stayd/pkg/model"
)

// ListingClient reads listing pricing and ownership from the external
// listing service. The intent core never mutates listings.
type ListingClient struct {
	httpClient *HttpClient
}

func NewListingClient(baseURL string) *ListingClient {
	return &ListingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *ListingClient) GetListing(ctx context.Context, listingID string) (*model.Listing, error) {
	path := "/api/v1/listings/id/" + url.PathEscape(listingID)

	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("listing %s not found", listingID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing service returned status %d", resp.StatusCode)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode listing wrapper: %w", err)
	}

	var listing model.Listing
	if err := json.Unmarshal(wrapper.Data, &listing); err != nil {
		return nil, fmt.Errorf("could not decode listing: %w", err)
	}

	return &listing, nil
}
