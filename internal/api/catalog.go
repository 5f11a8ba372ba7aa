package api

import (
	"context"
	"net/url"
)

// ListRooms returns the room catalog. With activeOnly set, rooms under
// maintenance are filtered server-side.
func (c *Client) ListRooms(ctx context.Context, activeOnly bool) ([]Room, error) {
	values := url.Values{}
	if activeOnly {
		values.Set("status", "active")
	}
	var rooms []Room
	if err := c.getJSON(ctx, "/api/rooms", values, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// ListResources returns the bookable resource catalog.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	if err := c.getJSON(ctx, "/api/resources", nil, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// ListUsers returns all staff accounts. Requires an admin session; the server
// enforces this.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// PublicSettings returns the site's public key/value configuration, consumed
// without authentication for branding.
func (c *Client) PublicSettings(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	if err := c.getJSON(ctx, "/api/settings/public", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
