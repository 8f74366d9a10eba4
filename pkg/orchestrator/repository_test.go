package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
)

func TestRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := orchestrator.NewRepository()

	_, err := repo.Create(ctx, "users", model.Values{"name": "Ana", "age": 30, "active": true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "users", model.Values{"name": "Bo", "age": 41, "active": false})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "orders", model.Values{"total": 10})
	require.NoError(t, err)

	all, err := repo.List(ctx, "users", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Ana", all[0]["name"])

	byName, err := repo.List(ctx, "users", model.Values{"name": "AN", "age": ""})
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byFlag, err := repo.List(ctx, "users", model.Values{"active": false})
	require.NoError(t, err)
	require.Len(t, byFlag, 1)
	require.Equal(t, "Bo", byFlag[0]["name"])

	require.Equal(t, []string{"orders", "users"}, repo.Resources())
}

func TestRepositoryMissingItems(t *testing.T) {
	ctx := context.Background()
	repo := orchestrator.NewRepository()

	_, err := repo.Update(ctx, "users", model.Values{"id": "nope"})
	require.ErrorIs(t, err, orchestrator.ErrItemNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "users", "nope"), orchestrator.ErrItemNotFound)
	_, err = repo.Get(ctx, "users", nil)
	require.ErrorIs(t, err, orchestrator.ErrItemNotFound)
}

func TestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := orchestrator.NewRepository()
	created, err := repo.Create(ctx, "users", model.Values{"name": "Ana"})
	require.NoError(t, err)

	created["name"] = "changed"
	stored, err := repo.Get(ctx, "users", created["id"])
	require.NoError(t, err)
	require.Equal(t, "Ana", stored["name"])
}
