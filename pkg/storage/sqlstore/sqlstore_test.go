package sqlstore_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-crudform/pkg/storage"
	"github.com/goliatone/go-crudform/pkg/storage/sqlstore"
)

func newMockStore(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlstore.New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestStoreGetItemMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT item_value FROM crudform_kv WHERE item_key = ?")).
		WithArgs("form-draft-users").
		WillReturnRows(sqlmock.NewRows([]string{"item_value"}))

	value, ok, err := store.GetItem(context.Background(), "form-draft-users")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSetItemUpserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crudform_kv (item_key, item_value) VALUES (?, ?) ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value")).
		WithArgs("k", "v").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SetItem(context.Background(), "k", "v"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWrapsDriverErrors(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM crudform_kv")).
		WillReturnError(errors.New("connection reset"))

	_, err := store.Length(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlstore: length")
}

func TestStoreCustomTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlstore.New(sqlx.NewDb(db, "sqlmock"), sqlstore.WithTable("drafts"), sqlstore.WithTable("bad name;"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM drafts WHERE item_key = ?")).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.RemoveItem(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	require.NoError(t, store.SetItem(ctx, "form-draft-b", `{"data":{}}`))
	require.NoError(t, store.SetItem(ctx, "form-draft-a", "first"))
	require.NoError(t, store.SetItem(ctx, "form-draft-a", "second"))
	require.NoError(t, store.SetItem(ctx, "other", "x"))

	value, ok, err := store.GetItem(ctx, "form-draft-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)

	length, err := store.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, length)

	keys, err := storage.Keys(ctx, store, "form-draft-")
	require.NoError(t, err)
	assert.Equal(t, []string{"form-draft-a", "form-draft-b"}, keys)

	require.NoError(t, store.RemoveItem(ctx, "form-draft-a"))
	_, ok, err = store.GetItem(ctx, "form-draft-a")
	require.NoError(t, err)
	assert.False(t, ok)
}
