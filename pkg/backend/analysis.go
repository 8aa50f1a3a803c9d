package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Analysis results are computed by the backend and relayed verbatim.

func (c *Client) PlayerProgress(ctx context.Context, playerID string, r AnalysisRange) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/analysis/player/"+seg(playerID)+"/progress", r, &out); err != nil {
		return nil, fmt.Errorf("player progress: %w", err)
	}
	return out, nil
}

func (c *Client) PlayerSummary(ctx context.Context, playerID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/analysis/player/"+seg(playerID)+"/summary", nil, &out); err != nil {
		return nil, fmt.Errorf("player summary: %w", err)
	}
	return out, nil
}

func (c *Client) ComparePlayers(ctx context.Context, q CompareQuery) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/analysis/compare", q, &out); err != nil {
		return nil, fmt.Errorf("compare players: %w", err)
	}
	return out, nil
}

func (c *Client) TeamOverview(ctx context.Context, teamID int) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/analysis/team/"+strconv.Itoa(teamID)+"/overview", nil, &out); err != nil {
		return nil, fmt.Errorf("team overview: %w", err)
	}
	return out, nil
}

func (c *Client) TeamTrends(ctx context.Context, teamID int, r AnalysisRange) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/analysis/team/"+strconv.Itoa(teamID)+"/trends", r, &out); err != nil {
		return nil, fmt.Errorf("team trends: %w", err)
	}
	return out, nil
}

func (c *Client) TeamRankings(ctx context.Context, teamID int, t AssessmentType) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/analysis/team/"+strconv.Itoa(teamID)+"/rankings", AnalysisRange{AssessmentType: t}, &out); err != nil {
		return nil, fmt.Errorf("team rankings: %w", err)
	}
	return out, nil
}
