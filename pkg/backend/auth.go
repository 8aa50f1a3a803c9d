package backend

import (
	"context"
	"fmt"
)

func (c *Client) Login(ctx context.Context, in Credentials) (*Tokens, error) {
	var out Tokens
	if err := c.post(ctx, "/auth/login/json", in, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}

	var out Tokens
	if err := c.post(ctx, "/auth/refresh", body, &out); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return &out, nil
}

// Me returns the user owning the bearer token carried by ctx.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/users/me", nil, &out); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &out, nil
}
