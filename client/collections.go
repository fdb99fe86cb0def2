package client

import (
	"context"
	"net/url"
)

// CollectionService lists collections and toggles their participation.
type CollectionService struct{ c *Client }

// List returns every collection of the shop.
func (s *CollectionService) List(ctx context.Context) ([]Collection, error) {
	var resp struct {
		Collections []Collection `json:"collections"`
	}
	if err := s.c.get(ctx, "/api/v1/collections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

// SetEnabled enables or disables the given collections and returns how many
// changed.
func (s *CollectionService) SetEnabled(ctx context.Context, ids []string, enabled bool) (int, error) {
	body := map[string]any{"ids": ids, "enabled": enabled}
	var resp struct {
		Updated int `json:"updated"`
	}
	if err := s.c.post(ctx, "/api/v1/collections/state", body, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// Preview returns the recommendations the storefront would show on the
// collection with the given handle.
func (s *CollectionService) Preview(ctx context.Context, handle string) ([]Recommendation, error) {
	var resp struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := s.c.get(ctx, "/api/v1/collections/"+pathEscape(handle)+"/recommendations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

func pathEscape(s string) string {
	return url.PathEscape(s)
}
