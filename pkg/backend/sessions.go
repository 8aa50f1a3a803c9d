package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

func (c *Client) ListSessions(ctx context.Context, f SessionFilters) ([]Session, error) {
	var out []Session
	if err := c.get(ctx, "/assessments/sessions", f, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var out Session
	if err := c.get(ctx, "/assessments/sessions/"+seg(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, in SessionCreate) (*Session, error) {
	var out Session
	if err := c.post(ctx, "/assessments/sessions", in, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateSession(ctx context.Context, id string, in SessionUpdate) (*Session, error) {
	var out Session
	if err := c.put(ctx, "/assessments/sessions/"+seg(id), in, &out); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.delete(ctx, "/assessments/sessions/"+seg(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CompleteSession marks a session complete. The returned record is the
// backend's confirmation and carries is_complete=true.
func (c *Client) CompleteSession(ctx context.Context, id string) (*Session, error) {
	var out Session
	if err := c.post(ctx, "/assessments/sessions/"+seg(id)+"/complete", nil, &out); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Per-type result collections
// ---------------------------------------------------------------------------

func resultsPath(t AssessmentType, sessionID string) string {
	return "/assessments/" + t.Segment() + "/" + seg(sessionID) + "/results"
}

func (c *Client) Tests(ctx context.Context, t AssessmentType) ([]TestDefinition, error) {
	var out []TestDefinition
	if err := c.get(ctx, "/assessments/"+t.Segment()+"/tests", nil, &out); err != nil {
		return nil, fmt.Errorf("list %s tests: %w", t, err)
	}
	return out, nil
}

// Results returns the stored results of a session. Shapes differ per type so
// records are returned undecoded.
func (c *Client) Results(ctx context.Context, t AssessmentType, sessionID string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.get(ctx, resultsPath(t, sessionID), nil, &out); err != nil {
		return nil, fmt.Errorf("list %s results: %w", t, err)
	}
	return out, nil
}

func (c *Client) CreateResult(ctx context.Context, t AssessmentType, sessionID string, item any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.post(ctx, resultsPath(t, sessionID), item, &out); err != nil {
		return nil, fmt.Errorf("create %s result: %w", t, err)
	}
	return out, nil
}

// BulkCreateResults submits every answer of a session in one call.
func (c *Client) BulkCreateResults(ctx context.Context, t AssessmentType, sessionID string, items []any) ([]json.RawMessage, error) {
	body := struct {
		Results []any `json:"results"`
	}{Results: items}

	var out []json.RawMessage
	if err := c.post(ctx, resultsPath(t, sessionID)+"/bulk", body, &out); err != nil {
		return nil, fmt.Errorf("bulk create %s results: %w", t, err)
	}
	return out, nil
}

func (c *Client) UpdateResult(ctx context.Context, t AssessmentType, sessionID, resultID string, patch any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.put(ctx, resultsPath(t, sessionID)+"/"+seg(resultID), patch, &out); err != nil {
		return nil, fmt.Errorf("update %s result: %w", t, err)
	}
	return out, nil
}

func (c *Client) DeleteResult(ctx context.Context, t AssessmentType, sessionID, resultID string) error {
	if err := c.delete(ctx, resultsPath(t, sessionID)+"/"+seg(resultID)); err != nil {
		return fmt.Errorf("delete %s result: %w", t, err)
	}
	return nil
}

// UploadKAMSReport forwards a KAMS PDF export to the backend for processing.
func (c *Client) UploadKAMSReport(ctx context.Context, filename string, r io.Reader) (*UploadReceipt, error) {
	var out UploadReceipt
	if err := c.upload(ctx, "/assessments/kams/upload", "file", filename, r, &out); err != nil {
		return nil, fmt.Errorf("upload kams report: %w", err)
	}
	return &out, nil
}
