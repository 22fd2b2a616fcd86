package handlers

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/domain/inventory"
	"backoffice/internal/infrastructure/http/v1/dto"
)

// CatalogHandler registers the reference data the ledger depends on.
type CatalogHandler struct {
	*BaseHandler
	catalog *inventory.Catalog
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, catalog *inventory.Catalog) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, catalog: catalog}
}

// CreateUnit handles POST /catalog/units.
func (h *CatalogHandler) CreateUnit(c *gin.Context) {
	var req dto.CreateUnitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	u, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.catalog.Units.Create(c.Request.Context(), u); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, u.ID)
}

// CreateWarehouse handles POST /catalog/warehouses.
func (h *CatalogHandler) CreateWarehouse(c *gin.Context) {
	var req dto.CreateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	w := req.ToEntity()
	if err := h.catalog.Warehouses.Create(c.Request.Context(), w); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, w.ID)
}

// CreateMaterial handles POST /catalog/materials.
func (h *CatalogHandler) CreateMaterial(c *gin.Context) {
	var req dto.CreateMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.catalog.Materials.Create(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m.ID)
}

// GetMaterial handles GET /catalog/materials/:id.
func (h *CatalogHandler) GetMaterial(c *gin.Context) {
	materialID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	m, err := h.catalog.Materials.GetByID(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}

// CreateAccount handles POST /catalog/accounts.
func (h *CatalogHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	a := req.ToEntity()
	if err := h.catalog.Accounts.Create(c.Request.Context(), a); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, a.ID)
}

// CreateRecipe handles POST /catalog/recipes.
// The response carries the recipe costed from current material averages.
func (h *CatalogHandler) CreateRecipe(c *gin.Context) {
	var req dto.CreateRecipeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.catalog.Recipes.Create(c.Request.Context(), r); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, r)
}

// GetRecipe handles GET /recipes/:id.
func (h *CatalogHandler) GetRecipe(c *gin.Context) {
	recipeID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	r, err := h.catalog.Recipe(c.Request.Context(), recipeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}
