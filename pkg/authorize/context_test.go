package authorize

import (
	"context"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

func TestSubjectFromContext(t *testing.T) {
	validUUID := uuid.New()

	tests := []struct {
		name        string
		setupCtx    func() context.Context
		wantSubject string
		wantErr     bool
	}{
		{
			name: "valid claims",
			setupCtx: func() context.Context {
				return reqctx.WithClaims(context.Background(), testClaims{id: validUUID})
			},
			wantSubject: validUUID.String(),
		},
		{
			name:     "no claims in context",
			setupCtx: context.Background,
			wantErr:  true,
		},
		{
			name: "nil uuid in claims",
			setupCtx: func() context.Context {
				return reqctx.WithClaims(context.Background(), testClaims{id: uuid.Nil})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, err := SubjectFromContext(tt.setupCtx())
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if subject != tt.wantSubject {
				t.Errorf("SubjectFromContext() = %q, want %q", subject, tt.wantSubject)
			}
		})
	}
}

func TestRolesFromContext(t *testing.T) {
	if _, err := RolesFromContext(context.Background()); err != ErrNoSubjectInContext {
		t.Errorf("RolesFromContext() error = %v, want ErrNoSubjectInContext", err)
	}

	ctx := reqctx.WithClaims(context.Background(), testClaims{id: uuid.New(), roles: []string{"coach"}})
	roles, err := RolesFromContext(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !slices.Equal(roles, []Role{RoleCoach}) {
		t.Errorf("RolesFromContext() = %v", roles)
	}
}
