package client

import "context"

// SettingsService reads and updates display settings.
type SettingsService struct{ c *Client }

// Get returns the shop's settings.
func (s *SettingsService) Get(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := s.c.get(ctx, "/api/v1/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update applies the set fields and returns the stored settings.
func (s *SettingsService) Update(ctx context.Context, req *UpdateSettingsRequest) (*Settings, error) {
	var settings Settings
	if err := s.c.put(ctx, "/api/v1/settings", req, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
