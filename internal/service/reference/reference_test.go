package reference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

// fakeAPI implements only what each test needs; other calls panic.
type fakeAPI struct {
	Backend

	sport        backend.Sport
	players      []backend.PlayerListItem
	gotFilters   backend.PlayerFilters
	uploaded     []byte
	uploadedName string
	compared     backend.CompareQuery
}

func (f *fakeAPI) GetSport(context.Context, int) (*backend.Sport, error) {
	s := f.sport
	return &s, nil
}

func (f *fakeAPI) ListPlayers(_ context.Context, pf backend.PlayerFilters) ([]backend.PlayerListItem, error) {
	f.gotFilters = pf
	return f.players, nil
}

func (f *fakeAPI) GetSession(_ context.Context, id string) (*backend.Session, error) {
	return &backend.Session{ID: id, AssessmentType: backend.TypeSprint, IsComplete: true}, nil
}

func (f *fakeAPI) Results(context.Context, backend.AssessmentType, string) ([]json.RawMessage, error) {
	return nil, nil
}

func (f *fakeAPI) UploadKAMSReport(_ context.Context, name string, r io.Reader) (*backend.UploadReceipt, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.uploaded, f.uploadedName = b, name
	return &backend.UploadReceipt{Filename: name, Status: "processing"}, nil
}

func (f *fakeAPI) ComparePlayers(_ context.Context, q backend.CompareQuery) (json.RawMessage, error) {
	f.compared = q
	return json.RawMessage(`{"players":[]}`), nil
}

func roster() []backend.PlayerListItem {
	return []backend.PlayerListItem{
		{ID: "3", FullName: "zed pitcher", IsActive: true, IsPitcher: true},
		{ID: "1", FullName: "Amy Both", IsActive: true, IsPitcher: true, IsPositionPlayer: true},
		{ID: "2", FullName: "Bo Fielder", IsActive: true, IsPositionPlayer: true},
		{ID: "4", FullName: "Al Retired", IsActive: false, IsPositionPlayer: true},
	}
}

func TestEligiblePlayers(t *testing.T) {
	ctx := context.Background()
	sport := backend.Sport{ID: 1, Name: "Baseball", AvailableAssessments: []backend.AssessmentType{
		backend.TypeOnBaseU, backend.TypePitcherOnBaseU, backend.TypeSprint,
	}}

	tests := []struct {
		name string
		typ  backend.AssessmentType
		want []string
	}{
		{"pitcher screen needs pitchers", backend.TypePitcherOnBaseU, []string{"1", "3"}},
		{"position screen needs position players", backend.TypeOnBaseU, []string{"1", "2"}},
		{"other types take any active player", backend.TypeSprint, []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{sport: sport, players: roster()}
			got, err := New(api, 0).EligiblePlayers(ctx, 1, tt.typ, " amy ")
			require.NoError(t, err)

			ids := make([]string, len(got))
			for i, p := range got {
				ids[i] = p.ID
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, 1, api.gotFilters.SportID)
			assert.Equal(t, "amy", api.gotFilters.Search)
			require.NotNil(t, api.gotFilters.IsActive)
			assert.True(t, *api.gotFilters.IsActive)
		})
	}

	t.Run("type not offered by sport", func(t *testing.T) {
		api := &fakeAPI{sport: sport, players: roster()}
		_, err := New(api, 0).EligiblePlayers(ctx, 1, backend.TypeKAMS, "")
		assert.ErrorIs(t, err, ErrAssessmentUnavailable)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := New(&fakeAPI{sport: sport}, 0).EligiblePlayers(ctx, 1, "yoga", "")
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestSessionDetail(t *testing.T) {
	d, err := New(&fakeAPI{}, 0).Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", d.Session.ID)
	assert.NotNil(t, d.Results)
}

func TestSessionsValidation(t *testing.T) {
	svc := New(&fakeAPI{}, 0)
	ctx := context.Background()

	_, err := svc.Sessions(ctx, backend.SessionFilters{AssessmentType: "yoga"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Sessions(ctx, backend.SessionFilters{StartDate: "2025-05-02", EndDate: "2025-05-01"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Sessions(ctx, backend.SessionFilters{StartDate: "May 1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUploadKAMS(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards pdf", func(t *testing.T) {
		api := &fakeAPI{}
		r, err := New(api, 1).UploadKAMS(ctx, "../../athlete.PDF", 4, bytes.NewReader([]byte("%PDF")))
		require.NoError(t, err)
		assert.Equal(t, "processing", r.Status)
		assert.Equal(t, "athlete.PDF", api.uploadedName)
		assert.Equal(t, []byte("%PDF"), api.uploaded)
	})

	t.Run("rejects other files", func(t *testing.T) {
		_, err := New(&fakeAPI{}, 1).UploadKAMS(ctx, "report.docx", 4, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrNotPDF)
	})

	t.Run("rejects declared oversize", func(t *testing.T) {
		_, err := New(&fakeAPI{}, 1).UploadKAMS(ctx, "big.pdf", 2<<20, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrUploadTooLarge)
	})

	t.Run("caps undeclared length", func(t *testing.T) {
		api := &fakeAPI{}
		body := bytes.Repeat([]byte("x"), (1<<20)+10)
		_, err := New(api, 1).UploadKAMS(ctx, "big.pdf", -1, bytes.NewReader(body))
		require.NoError(t, err)
		assert.Len(t, api.uploaded, 1<<20)
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	svc := New(api, 0)

	_, err := svc.Compare(ctx, backend.CompareQuery{PlayerIDs: []string{"a", "b", "a", ""}, AssessmentType: backend.TypeSprint})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, api.compared.PlayerIDs)

	_, err = svc.Compare(ctx, backend.CompareQuery{PlayerIDs: []string{"a", "a"}, AssessmentType: backend.TypeSprint})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Compare(ctx, backend.CompareQuery{PlayerIDs: []string{"a", "b"}, AssessmentType: backend.TypeSprint, AsOfDate: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
