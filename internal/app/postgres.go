package app

import (
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/internal/infrastructure/storage/postgres/catalog_repo"
	"backoffice/internal/infrastructure/storage/postgres/recipe_repo"
	"backoffice/internal/infrastructure/storage/postgres/register_repo"
)

// PostgresRepositories builds the repositories over one transaction manager.
func PostgresRepositories(txm *postgres.TxManager) Repositories {
	return Repositories{
		Units:        catalog_repo.NewUnitRepo(txm),
		Warehouses:   catalog_repo.NewWarehouseRepo(txm),
		Materials:    catalog_repo.NewMaterialRepo(txm),
		Accounts:     catalog_repo.NewCounterpartyRepo(txm),
		Stock:        register_repo.NewStockRepo(txm),
		Transactions: register_repo.NewAccountRepo(txm),
		Recipes:      recipe_repo.NewRecipeRepo(txm),
	}
}
