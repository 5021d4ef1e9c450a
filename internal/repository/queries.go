package repository

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	dialectPostgres = "postgres"

	tableProductAbstract          = "spy_product_abstract"
	tableProductAbstractLocalized = "spy_product_abstract_localized_attributes"
	tableProduct                  = "spy_product"
	tableProductLocalized         = "spy_product_localized_attributes"
	tablePriceProduct             = "spy_price_product"
	tablePriceType                = "spy_price_type"
	tableProductCategory          = "spy_product_category"
	tableCategory                 = "spy_category"
	tableCategoryNode             = "spy_category_node"
	tableCategoryClosure          = "spy_category_closure_table"
	tableCategoryAttribute        = "spy_category_attribute"
	tableURL                      = "spy_url"
	stockQuantityExpr             = `COALESCE((SELECT SUM("s"."quantity") FROM "spy_stock_product" AS "s" WHERE "s"."fk_product" = "p"."id_product"), 0)::text`
)

type sqlQueryString = string

var dialect = goqu.Dialect(dialectPostgres)

// SourceRowFilter narrows FindSourceRows. Zero values mean "no restriction".
type SourceRowFilter struct {
	AfterID int64
	IDs     []int64
	Limit   uint
}

func buildSourceRowsQuery(localeID int64, filter SourceRowFilter) (sqlQueryString, []any, error) {
	ds := dialect.From(goqu.T(tableProductAbstract).As("pa")).
		Prepared(true).
		Select(
			goqu.I("pa.id_product_abstract"),
			goqu.I("p.id_product"),
			goqu.I("pa.sku"),
			goqu.I("p.sku"),
			goqu.I("pal.name"),
			goqu.I("pal.attributes"),
			goqu.I("pl.attributes"),
			goqu.I("p.attributes"),
			goqu.L(stockQuantityExpr),
			goqu.COALESCE(goqu.I("u.url"), ""),
		).
		Distinct(goqu.I("pa.id_product_abstract")).
		InnerJoin(goqu.T(tableProduct).As("p"), goqu.On(
			goqu.I("p.fk_product_abstract").Eq(goqu.I("pa.id_product_abstract")),
			goqu.I("p.is_active").IsTrue(),
		)).
		InnerJoin(goqu.T(tableProductAbstractLocalized).As("pal"), goqu.On(
			goqu.I("pal.fk_product_abstract").Eq(goqu.I("pa.id_product_abstract")),
			goqu.I("pal.fk_locale").Eq(localeID),
		)).
		InnerJoin(goqu.T(tableProductLocalized).As("pl"), goqu.On(
			goqu.I("pl.fk_product").Eq(goqu.I("p.id_product")),
			goqu.I("pl.fk_locale").Eq(localeID),
		)).
		LeftJoin(goqu.T(tableURL).As("u"), goqu.On(
			goqu.I("u.fk_resource_product_abstract").Eq(goqu.I("pa.id_product_abstract")),
			goqu.I("u.fk_locale").Eq(localeID),
		)).
		Order(goqu.I("pa.id_product_abstract").Asc(), goqu.I("p.id_product").Asc())

	var where []exp.Expression
	if filter.AfterID > 0 {
		where = append(where, goqu.I("pa.id_product_abstract").Gt(filter.AfterID))
	}
	if len(filter.IDs) > 0 {
		where = append(where, goqu.I("pa.id_product_abstract").In(filter.IDs))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	if filter.Limit > 0 {
		ds = ds.Limit(filter.Limit)
	}

	return ds.ToSQL()
}

func buildActivePriceRowsQuery(abstractProductID, productID int64) (sqlQueryString, []any, error) {
	return dialect.From(goqu.T(tablePriceProduct).As("pp")).
		Prepared(true).
		Select(goqu.I("pt.name"), goqu.I("pp.price")).
		InnerJoin(goqu.T(tableProduct).As("p"), goqu.On(
			goqu.I("p.id_product").Eq(goqu.I("pp.fk_product")),
			goqu.I("p.is_active").IsTrue(),
			goqu.I("p.fk_product_abstract").Eq(abstractProductID),
		)).
		InnerJoin(goqu.T(tablePriceType).As("pt"), goqu.On(
			goqu.I("pt.id_price_type").Eq(goqu.I("pp.fk_price_type")),
		)).
		Where(goqu.I("p.id_product").Eq(productID)).
		Order(goqu.I("pp.id_price_product").Asc()).
		ToSQL()
}

func buildPriceTypeByNameQuery(name string) (sqlQueryString, []any, error) {
	return dialect.From(tablePriceType).
		Prepared(true).
		Select("name").
		Where(goqu.C("name").Eq(name)).
		Limit(1).
		ToSQL()
}

func buildAbstractPriceBySkuQuery(sku, priceType string) (sqlQueryString, []any, error) {
	return dialect.From(goqu.T(tablePriceProduct).As("pp")).
		Prepared(true).
		Select(goqu.I("pp.price")).
		InnerJoin(goqu.T(tableProductAbstract).As("pa"), goqu.On(
			goqu.I("pa.id_product_abstract").Eq(goqu.I("pp.fk_product_abstract")),
		)).
		InnerJoin(goqu.T(tablePriceType).As("pt"), goqu.On(
			goqu.I("pt.id_price_type").Eq(goqu.I("pp.fk_price_type")),
		)).
		Where(
			goqu.I("pa.sku").Eq(sku),
			goqu.I("pt.name").Eq(priceType),
		).
		Order(goqu.I("pp.id_price_product").Asc()).
		Limit(1).
		ToSQL()
}

func buildActiveCategoryMembershipsQuery(abstractProductID int64) (sqlQueryString, []any, error) {
	return dialect.From(goqu.T(tableProductCategory).As("pc")).
		Prepared(true).
		Select(
			goqu.I("pc.fk_product_abstract"),
			goqu.I("pc.fk_category"),
			goqu.COALESCE(goqu.I("pc.product_order"), 0),
		).
		InnerJoin(goqu.T(tableCategory).As("c"), goqu.On(
			goqu.I("c.id_category").Eq(goqu.I("pc.fk_category")),
			goqu.I("c.is_active").IsTrue(),
		)).
		Where(goqu.I("pc.fk_product_abstract").Eq(abstractProductID)).
		Order(goqu.I("pc.product_order").Asc(), goqu.I("pc.fk_category").Asc()).
		ToSQL()
}

func buildCategoryNodesQuery(categoryID int64) (sqlQueryString, []any, error) {
	return dialect.From(goqu.T(tableCategoryNode).As("n")).
		Prepared(true).
		Select(
			goqu.I("n.id_category_node"),
			goqu.I("n.fk_category"),
			goqu.I("n.fk_parent_category_node"),
			goqu.I("n.is_root"),
			goqu.I("c.is_active"),
		).
		InnerJoin(goqu.T(tableCategory).As("c"), goqu.On(
			goqu.I("c.id_category").Eq(goqu.I("n.fk_category")),
		)).
		Where(goqu.I("n.fk_category").Eq(categoryID)).
		Order(goqu.I("n.id_category_node").Asc()).
		ToSQL()
}

func buildPathForNodeQuery(nodeID, localeID int64) (sqlQueryString, []any, error) {
	return dialect.From(goqu.T(tableCategoryClosure).As("cc")).
		Prepared(true).
		Select(goqu.I("n.id_category_node"), goqu.I("a.name")).
		InnerJoin(goqu.T(tableCategoryNode).As("n"), goqu.On(
			goqu.I("n.id_category_node").Eq(goqu.I("cc.fk_category_node")),
		)).
		InnerJoin(goqu.T(tableCategoryAttribute).As("a"), goqu.On(
			goqu.I("a.fk_category").Eq(goqu.I("n.fk_category")),
			goqu.I("a.fk_locale").Eq(localeID),
		)).
		Where(goqu.I("cc.fk_category_node_descendant").Eq(nodeID)).
		Order(goqu.I("cc.depth").Desc()).
		ToSQL()
}

func buildURLForNodeQuery(nodeID int64) (sqlQueryString, []any, error) {
	return dialect.From(tableURL).
		Prepared(true).
		Select("url").
		Where(goqu.C("fk_resource_categorynode").Eq(nodeID)).
		Order(goqu.C("id_url").Asc()).
		Limit(1).
		ToSQL()
}
