package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Players
// ---------------------------------------------------------------------------

func (c *Client) ListPlayers(ctx context.Context, f PlayerFilters) ([]PlayerListItem, error) {
	var out []PlayerListItem
	if err := c.get(ctx, "/players", f, &out); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return out, nil
}

func (c *Client) GetPlayer(ctx context.Context, id string) (*Player, error) {
	var out Player
	if err := c.get(ctx, "/players/"+seg(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &out, nil
}

// PlayerAssessments returns the player's record with assessment counts.
func (c *Client) PlayerAssessments(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/players/"+seg(id)+"/assessments", nil, &out); err != nil {
		return nil, fmt.Errorf("get player assessments: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Sports
// ---------------------------------------------------------------------------

type sportsQuery struct {
	IncludeInactive bool `url:"include_inactive,omitempty"`
}

func (c *Client) ListSports(ctx context.Context, includeInactive bool) ([]Sport, error) {
	var out []Sport
	if err := c.get(ctx, "/sports", sportsQuery{IncludeInactive: includeInactive}, &out); err != nil {
		return nil, fmt.Errorf("list sports: %w", err)
	}
	return out, nil
}

func (c *Client) GetSport(ctx context.Context, id int) (*Sport, error) {
	var out Sport
	if err := c.get(ctx, "/sports/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get sport: %w", err)
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Teams
// ---------------------------------------------------------------------------

func (c *Client) ListTeams(ctx context.Context, includeInactive bool) ([]Team, error) {
	var out []Team
	if err := c.get(ctx, "/teams", sportsQuery{IncludeInactive: includeInactive}, &out); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return out, nil
}

func (c *Client) TeamPlayers(ctx context.Context, id int, includeInactive bool) ([]PlayerListItem, error) {
	var out []PlayerListItem
	if err := c.get(ctx, "/teams/"+strconv.Itoa(id)+"/players", sportsQuery{IncludeInactive: includeInactive}, &out); err != nil {
		return nil, fmt.Errorf("list team players: %w", err)
	}
	return out, nil
}
