package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/warehouse"
)

func TestBaseSelect_ForUpdate(t *testing.T) {
	repo := NewBaseCatalogRepo[any](nil, "test_table", "test", []string{"id", "col1"}, func() any { return nil })
	mid := id.New()

	sql, args, err := repo.baseSelect().
		Where("id = ?", mid).
		Suffix("FOR UPDATE").
		ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, col1 FROM test_table WHERE id = $1 FOR UPDATE", sql)
	assert.Equal(t, []any{mid}, args)
}

func TestInsertQuery_UsesDBTags(t *testing.T) {
	repo := NewWarehouseRepo(nil)
	w := warehouse.NewWarehouse("MAIN", "Main store", warehouse.TypeMain)

	sql, args, err := repo.insertQuery(w)
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO cat_warehouses (code,id,is_active,name,type,updated_at,version) VALUES ($1,$2,$3,$4,$5,$6,$7)",
		sql)
	require.Len(t, args, 7)
	assert.Equal(t, "MAIN", args[0])
	assert.Equal(t, w.ID, args[1])
	assert.Equal(t, true, args[2])
	assert.Equal(t, warehouse.TypeMain, args[4])
}

func TestInsertQuery_MaterialCarriesAggregates(t *testing.T) {
	repo := NewMaterialRepo(nil)
	m := material.NewMaterial("FLOUR", "Flour", id.New(), id.New())

	sql, _, err := repo.insertQuery(m)
	require.NoError(t, err)

	assert.Contains(t, sql, "average_cost")
	assert.Contains(t, sql, "current_stock")
	assert.Contains(t, sql, "recipe_id")
	assert.NotContains(t, sql, "ingredients")
}

func TestUpdateQuery_BumpsVersion(t *testing.T) {
	repo := NewCounterpartyRepo(nil)
	aid := id.New()

	sql, args, err := repo.updateQuery(aid, map[string]any{"balance": types.MustMoney("12.5")}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE cat_current_accounts SET balance = $1, version = version + 1, updated_at = $2 WHERE id = $3",
		sql)
	require.Len(t, args, 3)
	assert.True(t, args[0].(types.Money).Equal(types.MustMoney("12.5")))
	assert.Equal(t, aid, args[2])
}

func TestNewCounterpartyRepo_Columns(t *testing.T) {
	repo := NewCounterpartyRepo(nil)
	assert.Equal(t,
		[]string{"id", "version", "updated_at", "code", "name", "kind", "balance"},
		repo.selectCols)
}
