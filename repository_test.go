package repoql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repoql/internal/testutil"
	"github.com/leapstack-labs/repoql/pkg/adapter"
	"github.com/leapstack-labs/repoql/pkg/criteria"
	"github.com/leapstack-labs/repoql/pkg/query"
)

// testAdapter satisfies adapter.Adapter for sqlmock-backed connections.
type testAdapter struct{}

func (testAdapter) DriverName() string                 { return "sqlmock" }
func (testAdapter) DSN(adapter.Target) (string, error) { return "", nil }
func (testAdapter) Placeholder() query.Placeholder     { return query.PlaceholderQuestion }

func newTestRepo(t *testing.T, opts ...Option) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	return New(db, testAdapter{}, "posts", opts...), mock
}

func postRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "title"})
	for _, id := range ids {
		rows.AddRow(id, "post")
	}
	return rows
}

func TestRepository_All_AppliesActiveFilter(t *testing.T) {
	repo, mock := newTestRepo(t)
	repo.EnableActiveFilter("active")

	mock.ExpectQuery("SELECT * FROM posts WHERE active = ?").
		WithArgs(true).
		WillReturnRows(postRows(1, 2))

	rows, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0]["id"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_First_LimitsToOneRow(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT * FROM posts LIMIT 1").
		WillReturnRows(postRows(7))

	row, err := repo.First(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, row["id"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_First_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT * FROM posts LIMIT 1").
		WillReturnRows(postRows())

	_, err := repo.First(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Count(t *testing.T) {
	repo, mock := newTestRepo(t)
	repo.EnableActiveFilter("active")

	mock.ExpectQuery("SELECT COUNT(*) FROM posts WHERE active = ?").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}

func TestRepository_Paginate(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("SELECT * FROM posts LIMIT 2 OFFSET 2").
		WillReturnRows(postRows(3, 4))

	page, err := repo.Paginate(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Paginate_InvalidPerPage(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Paginate(context.Background(), 1, 0)
	require.Error(t, err)
}

func TestRepository_FindByField_IsOneShot(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT * FROM posts WHERE author = ?").
		WithArgs("ada").
		WillReturnRows(postRows(1))
	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(postRows(1, 2, 3))

	_, err := repo.FindByField(context.Background(), "author", "ada")
	require.NoError(t, err)

	rows, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3, "the field filter must not persist")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PushCriteria_Persists(t *testing.T) {
	repo, mock := newTestRepo(t)

	require.NoError(t, repo.PushCriteria(criteria.WhereEq("status", "published"), "published"))

	mock.ExpectQuery("SELECT * FROM posts WHERE status = ?").
		WithArgs("published").
		WillReturnRows(postRows(1))
	// Second call materializes the same effective list; only the execution
	// repeats.
	mock.ExpectQuery("SELECT * FROM posts WHERE status = ?").
		WithArgs("published").
		WillReturnRows(postRows(1))

	_, err := repo.All(context.Background())
	require.NoError(t, err)
	_, err = repo.All(context.Background())
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RemoveCriteriaOnce_SuppressesStanding(t *testing.T) {
	repo, mock := newTestRepo(t)

	require.NoError(t, repo.PushCriteria(criteria.WhereEq("status", "published"), "published"))
	repo.RemoveCriteriaOnce("published")

	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(postRows(1, 2))
	mock.ExpectQuery("SELECT * FROM posts WHERE status = ?").
		WithArgs("published").
		WillReturnRows(postRows(1))

	_, err := repo.All(context.Background())
	require.NoError(t, err)
	_, err = repo.All(context.Background())
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SkipCriteria(t *testing.T) {
	repo, mock := newTestRepo(t)
	repo.EnableActiveFilter("active")
	repo.SkipCriteria(true)

	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(postRows(1, 2, 3))

	rows, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Scope_EndToEnd(t *testing.T) {
	repo, mock := newTestRepo(t, WithScope("published", func(b *query.Builder, _ map[string]any) error {
		b.WhereEq("status", "published")
		return nil
	}))
	repo.EnableActiveFilter("active")
	repo.PushCriteriaOnce(criteria.Scope{Pairs: []criteria.ScopePair{{Name: "published"}}}, criteria.KeyScope)

	// Fold order: settings-injected active filter first, then the one-shot
	// scope.
	mock.ExpectQuery("SELECT * FROM posts WHERE active = ? AND status = ?").
		WithArgs(true, "published").
		WillReturnRows(postRows(1))
	// The scope was one-shot: the next query reverts to the standing
	// criteria only.
	mock.ExpectQuery("SELECT * FROM posts WHERE active = ?").
		WithArgs(true).
		WillReturnRows(postRows(1, 2))

	_, err := repo.All(context.Background())
	require.NoError(t, err)
	_, err = repo.All(context.Background())
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UnknownScopeSurfaces(t *testing.T) {
	repo, _ := newTestRepo(t)
	repo.AddScope("missing", nil)

	_, err := repo.All(context.Background())

	var unknown *query.UnknownScopeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Name)
}

func TestRepository_CacheReadThrough(t *testing.T) {
	repo, mock := newTestRepo(t)
	repo.EnableCache(time.Hour)

	// One expectation only: the second All must be served from the cache.
	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(postRows(1, 2))

	first, err := repo.All(context.Background())
	require.NoError(t, err)

	second, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DisableCacheStopsDirective(t *testing.T) {
	repo, mock := newTestRepo(t)
	repo.EnableCache(time.Hour)
	repo.DisableCache()
	repo.FlushCache()

	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(postRows(1))
	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(postRows(1))

	_, err := repo.All(context.Background())
	require.NoError(t, err)
	_, err = repo.All(context.Background())
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ReservedKeyRejected(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.PushCriteria(criteria.WhereEq("a", 1), criteria.KeyActive)

	var invalidKey *criteria.InvalidKeyError
	require.ErrorAs(t, err, &invalidKey)
}

func TestRepository_IncludeInactive(t *testing.T) {
	repo, mock := newTestRepo(t)
	repo.EnableActiveFilter("active")
	repo.IncludeInactive(true)

	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(postRows(1, 2))

	rows, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// Turning the override back off restores the filter.
	repo.IncludeInactive(false)
	mock.ExpectQuery("SELECT * FROM posts WHERE active = ?").
		WithArgs(true).
		WillReturnRows(postRows(1))

	_, err = repo.All(context.Background())
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
