package memrepo_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/mcptime/internal/adapter/outbound/memrepo"
	"github.com/i2y/mcptime/internal/domain"
	"github.com/i2y/mcptime/internal/usecase"
)

func newTestRepo(t *testing.T) *memrepo.InMemoryToolRepository {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return memrepo.NewInMemoryToolRepository(logger)
}

func TestInMemoryToolRepository_SaveAndList(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	tool1 := domain.Tool{Name: "tool1", Description: "T1"}
	tool2 := domain.Tool{Name: "tool2", Description: "T2"}

	tests := []struct {
		name        string
		inTools     []domain.Tool
		wantSaveErr bool
		wantList    []domain.Tool // Expected state after save
	}{
		{
			name:     "Save single tool",
			inTools:  []domain.Tool{tool1},
			wantList: []domain.Tool{tool1},
		},
		{
			name:     "Save multiple tools keeps order",
			inTools:  []domain.Tool{tool2, tool1},
			wantList: []domain.Tool{tool2, tool1},
		},
		{
			name:     "Save empty list",
			inTools:  []domain.Tool{},
			wantList: []domain.Tool{},
		},
		{
			name:     "Save with empty tool name (skipped)",
			inTools:  []domain.Tool{{Name: "", Description: "Empty"}, tool1},
			wantList: []domain.Tool{tool1},
		},
		{
			name:        "Error on duplicate names",
			inTools:     []domain.Tool{tool1, tool1},
			wantSaveErr: true,
			wantList:    []domain.Tool{}, // Expect state to be unchanged on error
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)

			err := repo.Save(ctx, tt.inTools)
			if tt.wantSaveErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}

			listedTools, listErr := repo.List(ctx)
			require.NoError(listErr)
			assert.Equal(tt.wantList, listedTools)
		})
	}
}

func TestInMemoryToolRepository_ListIsStable(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, usecase.TimeTools("UTC")))

	first, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	for i := 0; i < 20; i++ {
		again, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// Mutating the returned slice must not affect the repository.
	first[0].Name = "mutated"
	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "get_current_time", again[0].Name)
}

func TestInMemoryToolRepository_ResaveKeepsPosition(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, []domain.Tool{{Name: "a"}, {Name: "b"}}))
	require.NoError(t, repo.Save(ctx, []domain.Tool{{Name: "a", Description: "updated"}}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Tool{{Name: "a", Description: "updated"}, {Name: "b"}}, list)
}

func TestInMemoryToolRepository_FindByName(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	tool1 := domain.Tool{Name: "tool1", Description: "T1"}
	tool2 := domain.Tool{Name: "tool2", Description: "T2"}
	require.NoError(repo.Save(ctx, []domain.Tool{tool1, tool2}))

	tests := []struct {
		name        string
		inName      string
		wantTool    *domain.Tool
		wantFindErr bool
	}{
		{name: "Find existing tool1", inName: "tool1", wantTool: &tool1},
		{name: "Find existing tool2", inName: "tool2", wantTool: &tool2},
		{name: "Find non-existent tool", inName: "tool3", wantFindErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actualTool, err := repo.FindToolByName(ctx, tt.inName)
			if tt.wantFindErr {
				assert.ErrorIs(err, usecase.ErrToolNotFound)
				assert.Nil(actualTool)
			} else {
				assert.NoError(err)
				assert.Equal(tt.wantTool, actualTool)
			}
		})
	}
}

func TestInMemoryToolRepository_ConcurrentReads(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, usecase.TimeTools("UTC")))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tools, err := repo.List(ctx)
			assert.NoError(t, err)
			assert.Len(t, tools, 2)
			_, err = repo.FindToolByName(ctx, "convert_time")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
