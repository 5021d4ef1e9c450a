package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/collector/internal/domain"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int64:
			*p = r.values[i].(int64)
		}
	}
	return nil
}

type fakeQuerier struct {
	row      fakeRow
	queryErr error
	lastSQL  string
	lastArgs []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.lastSQL, q.lastArgs = sql, args
	return nil, q.queryErr
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.lastSQL, q.lastArgs = sql, args
	return q.row
}

func TestFindURLForNode(t *testing.T) {
	tests := []struct {
		name    string
		row     fakeRow
		want    *string
		wantErr error
	}{
		{
			name: "assigned_url",
			row:  fakeRow{values: []any{"/shoes"}},
			want: func() *string { s := "/shoes"; return &s }(),
		},
		{
			name: "no_url_is_not_an_error",
			row:  fakeRow{err: pgx.ErrNoRows},
		},
		{
			name:    "driver_error_is_query_failure",
			row:     fakeRow{err: errors.New("connection reset")},
			wantErr: domain.ErrQueryFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQuerier{row: tc.row}
			repo := NewCatalogRepository(q, "DEFAULT")

			got, err := repo.FindURLForNode(context.Background(), 10)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Contains(t, q.lastSQL, `"fk_resource_categorynode" = $1`)
		})
	}
}

func TestFindDefaultPriceTypeName_MissingTypeIsMissingDefaultPrice(t *testing.T) {
	repo := NewCatalogRepository(&fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}, "DEFAULT")

	_, err := repo.FindDefaultPriceTypeName(context.Background())

	assert.ErrorIs(t, err, domain.ErrMissingDefaultPrice)
	assert.NotErrorIs(t, err, domain.ErrQueryFailed)
}

func TestFindAbstractPriceBySku(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{int64(599)}}}
	repo := NewCatalogRepository(q, "DEFAULT")

	price, err := repo.FindAbstractPriceBySku(context.Background(), "ABC-1")

	require.NoError(t, err)
	assert.Equal(t, int64(599), price)
	assert.Contains(t, q.lastArgs, "ABC-1")
	assert.Contains(t, q.lastArgs, "DEFAULT")

	q.row = fakeRow{err: pgx.ErrNoRows}
	_, err = repo.FindAbstractPriceBySku(context.Background(), "ABC-1")
	assert.ErrorIs(t, err, domain.ErrMissingDefaultPrice)
}

func TestQueryErrorsAreWrappedAsQueryFailure(t *testing.T) {
	driverErr := errors.New("relation does not exist")
	repo := NewCatalogRepository(&fakeQuerier{queryErr: driverErr}, "DEFAULT")
	ctx := context.Background()

	_, err := repo.FindActivePriceRows(ctx, 1, 2)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
	assert.ErrorIs(t, err, driverErr)

	_, err = repo.FindActiveCategoryMemberships(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)

	_, err = repo.FindCategoryNodesForCategory(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)

	_, err = repo.FindPathForNode(ctx, 1, 46)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)

	_, err = repo.FindSourceRows(ctx, 46, SourceRowFilter{Limit: 10})
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
}

func TestBuildSourceRowsQuery(t *testing.T) {
	query, args, err := buildSourceRowsQuery(46, SourceRowFilter{AfterID: 100, Limit: 500})
	require.NoError(t, err)

	assert.Contains(t, query, `DISTINCT ON ("pa"."id_product_abstract")`)
	assert.Contains(t, query, `"spy_product_abstract" AS "pa"`)
	assert.Contains(t, query, `LEFT JOIN "spy_url" AS "u"`)
	assert.Contains(t, query, `ORDER BY "pa"."id_product_abstract" ASC, "p"."id_product" ASC`)
	assert.Contains(t, query, "LIMIT")
	assert.Contains(t, args, int64(46))
	assert.Contains(t, args, int64(100))

	query, _, err = buildSourceRowsQuery(46, SourceRowFilter{IDs: []int64{3, 5}})
	require.NoError(t, err)
	assert.Contains(t, query, `"pa"."id_product_abstract" IN (`)
	assert.NotContains(t, query, "LIMIT")
}

func TestBuildActivePriceRowsQuery(t *testing.T) {
	query, args, err := buildActivePriceRowsQuery(7, 70)
	require.NoError(t, err)

	assert.Contains(t, query, `"spy_price_product" AS "pp"`)
	assert.Contains(t, query, `"p"."is_active" IS TRUE`)
	assert.Contains(t, query, `INNER JOIN "spy_price_type" AS "pt"`)
	assert.Contains(t, args, int64(7))
	assert.Contains(t, args, int64(70))
}

func TestBuildActiveCategoryMembershipsQuery_OrdersByProductOrder(t *testing.T) {
	query, _, err := buildActiveCategoryMembershipsQuery(7)
	require.NoError(t, err)

	assert.Contains(t, query, `"c"."is_active" IS TRUE`)
	assert.Contains(t, query, `ORDER BY "pc"."product_order" ASC, "pc"."fk_category" ASC`)
}

func TestBuildPathForNodeQuery_RootFirst(t *testing.T) {
	query, args, err := buildPathForNodeQuery(10, 46)
	require.NoError(t, err)

	assert.Contains(t, query, `"spy_category_closure_table" AS "cc"`)
	assert.Contains(t, query, `ORDER BY "cc"."depth" DESC`)
	assert.Contains(t, args, int64(10))
	assert.Contains(t, args, int64(46))
}
