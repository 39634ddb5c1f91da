package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

func TestCreateProject(t *testing.T) {
	database := setupDB(t)

	p := newTestProject(t, database, "  User Guide ", "EN", "pt_BR")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "User Guide", p.Name)
	assert.Equal(t, model.Language("en"), p.SourceLang)
	assert.Equal(t, model.Language("pt-br"), p.TargetLang)
}

func TestCreateProject_Validation(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateProjectInput
	}{
		{"missing name", CreateProjectInput{SourceLang: "en", TargetLang: "fr"}},
		{"missing source", CreateProjectInput{Name: "a", TargetLang: "fr"}},
		{"bad target", CreateProjectInput{Name: "a", SourceLang: "en", TargetLang: "french!"}},
		{"same languages", CreateProjectInput{Name: "a", SourceLang: "en", TargetLang: "EN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateProject(ctx, database, tt.input)
			assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestCreateProject_DuplicateName(t *testing.T) {
	database := setupDB(t)
	newTestProject(t, database, "Guide", "en", "fr")

	_, err := CreateProject(context.Background(), database, CreateProjectInput{
		Name: "guide", SourceLang: "en", TargetLang: "de",
	})
	assert.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)
}

func TestResolveProject(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	p := newTestProject(t, database, "User Guide", "en", "fr")

	byID, err := ResolveProject(ctx, database, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byID.ID)

	byName, err := ResolveProject(ctx, database, "user   GUIDE")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)

	_, err = ResolveProject(ctx, database, "nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = ResolveProject(ctx, database, " ")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestListAndDeleteProjects(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	a := newTestProject(t, database, "A", "en", "fr")
	newTestProject(t, database, "B", "en", "de")

	out, err := ListProjects(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)

	del, err := DeleteProject(ctx, database, "a")
	require.NoError(t, err)
	assert.Equal(t, a.ID, del.ID)

	out, err = ListProjects(ctx, database)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "B", out.Items[0].Name)
}
