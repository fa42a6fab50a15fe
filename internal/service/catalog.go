package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"barbearia/backend/internal/bus"
	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/store"
	"barbearia/backend/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, s.wrapStoreErr("load product", err)
	}
	return product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	violations := validateProductFields(req.Name, req.PriceCents, req.StockQuantity, req.MinStockQuantity, req.CommissionCents)
	if len(violations) > 0 {
		return domain.Product{}, newValidationError(violations)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:               xid.New("prod"),
		Name:             strings.TrimSpace(req.Name),
		PriceCents:       req.PriceCents,
		IsStockTracked:   req.IsStockTracked,
		StockQuantity:    req.StockQuantity,
		MinStockQuantity: req.MinStockQuantity,
		CommissionCents:  req.CommissionCents,
		Active:           true,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return domain.Product{}, s.wrapStoreErr("create product", err)
	}

	s.logAudit(ctx, "product_create", "product", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.wrapStoreErr("load product", err)
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.PriceCents != nil {
		product.PriceCents = *req.PriceCents
	}
	if req.IsStockTracked != nil {
		product.IsStockTracked = *req.IsStockTracked
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.MinStockQuantity != nil {
		product.MinStockQuantity = *req.MinStockQuantity
	}
	if req.CommissionCents != nil {
		product.CommissionCents = *req.CommissionCents
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	violations := validateProductFields(product.Name, product.PriceCents, product.StockQuantity, product.MinStockQuantity, product.CommissionCents)
	if len(violations) > 0 {
		return domain.Product{}, newValidationError(violations)
	}

	updated, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return domain.Product{}, s.wrapStoreErr("update product", err)
	}

	if updated.IsStockTracked {
		change := bus.StockChange{ProductID: updated.ID, Remaining: updated.StockQuantity, Minimum: updated.MinStockQuantity}
		s.events.Publish(bus.TopicProductStockUpdated, change)
		if updated.StockQuantity <= updated.MinStockQuantity {
			s.events.Publish(bus.TopicProductLowStock, change)
		}
	}

	s.logAudit(ctx, "product_update", "product", updated.ID, updated.Name)
	return *updated, nil
}

// LowStockProducts lists stock-tracked products at or below their minimum.
func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, s.wrapStoreErr("list products", err)
	}

	low := make([]domain.Product, 0, 4)
	for _, product := range products {
		if product.Active && product.IsStockTracked && product.StockQuantity <= product.MinStockQuantity {
			low = append(low, product)
		}
	}
	return low, nil
}

// LowStockIngredients lists ingredients at or below their minimum, or below
// an explicit threshold when one is given.
func (s *Service) LowStockIngredients(ctx context.Context, threshold float64) ([]domain.Ingredient, error) {
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return nil, s.wrapStoreErr("list ingredients", err)
	}

	low := make([]domain.Ingredient, 0, 4)
	for _, ingredient := range ingredients {
		limit := ingredient.MinQuantity
		if threshold > limit {
			limit = threshold
		}
		if ingredient.Quantity <= limit {
			low = append(low, ingredient)
		}
	}
	return low, nil
}

func (s *Service) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.repo.ListIngredients(ctx)
}

func (s *Service) CreateIngredient(ctx context.Context, req domain.IngredientCreateRequest) (domain.Ingredient, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Ingredient{}, err
	}

	violations := validateIngredientFields(req.Name, req.Quantity, req.MinQuantity, req.CostPerUnitCents)
	if len(violations) > 0 {
		return domain.Ingredient{}, newValidationError(violations)
	}

	created, err := s.repo.CreateIngredient(ctx, domain.Ingredient{
		ID:               xid.New("ing"),
		Name:             strings.TrimSpace(req.Name),
		Unit:             strings.TrimSpace(req.Unit),
		Quantity:         req.Quantity,
		MinQuantity:      req.MinQuantity,
		CostPerUnitCents: req.CostPerUnitCents,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return domain.Ingredient{}, s.wrapStoreErr("create ingredient", err)
	}

	s.logAudit(ctx, "ingredient_create", "ingredient", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateIngredient(ctx context.Context, ingredientID string, req domain.IngredientUpdateRequest) (domain.Ingredient, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Ingredient{}, err
	}

	ingredient, err := s.repo.GetIngredientByID(ctx, ingredientID)
	if err != nil {
		return domain.Ingredient{}, s.wrapStoreErr("load ingredient", err)
	}

	if req.Name != nil {
		ingredient.Name = strings.TrimSpace(*req.Name)
	}
	if req.Unit != nil {
		ingredient.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Quantity != nil {
		ingredient.Quantity = *req.Quantity
	}
	if req.MinQuantity != nil {
		ingredient.MinQuantity = *req.MinQuantity
	}
	if req.CostPerUnitCents != nil {
		ingredient.CostPerUnitCents = *req.CostPerUnitCents
	}

	violations := validateIngredientFields(ingredient.Name, ingredient.Quantity, ingredient.MinQuantity, ingredient.CostPerUnitCents)
	if len(violations) > 0 {
		return domain.Ingredient{}, newValidationError(violations)
	}

	updated, err := s.repo.UpdateIngredient(ctx, *ingredient)
	if err != nil {
		return domain.Ingredient{}, s.wrapStoreErr("update ingredient", err)
	}

	change := bus.IngredientChange{IngredientID: updated.ID, Remaining: updated.Quantity, Minimum: updated.MinQuantity}
	s.events.Publish(bus.TopicIngredientStockUpdated, change)
	if updated.Quantity <= updated.MinQuantity {
		s.events.Publish(bus.TopicIngredientLowStock, change)
	}

	s.logAudit(ctx, "ingredient_update", "ingredient", updated.ID, updated.Name)
	return *updated, nil
}

// DeleteIngredient refuses while any recipe still references the ingredient.
func (s *Service) DeleteIngredient(ctx context.Context, ingredientID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	inUse, err := s.repo.IngredientInUse(ctx, ingredientID)
	if err != nil {
		return s.wrapStoreErr("check ingredient usage", err)
	}
	if inUse {
		return fmt.Errorf("%w: ingredient is referenced by a product recipe", store.ErrConflict)
	}

	if err := s.repo.DeleteIngredient(ctx, ingredientID); err != nil {
		return s.wrapStoreErr("delete ingredient", err)
	}

	s.logAudit(ctx, "ingredient_delete", "ingredient", ingredientID, "")
	return nil
}

func (s *Service) ListProductRecipe(ctx context.Context, productID string) ([]domain.ProductIngredient, error) {
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return nil, s.wrapStoreErr("load product", err)
	}
	return s.repo.ListProductIngredients(ctx, productID)
}

// ProductRecipeCost sums ingredient cost for one produced unit.
func (s *Service) ProductRecipeCost(ctx context.Context, productID string) (int64, error) {
	rows, err := s.ListProductRecipe(ctx, productID)
	if err != nil {
		return 0, err
	}

	var cost float64
	for _, row := range rows {
		ingredient, err := s.repo.GetIngredientByID(ctx, row.IngredientID)
		if err != nil {
			return 0, s.wrapStoreErr("load ingredient", err)
		}
		cost += row.QuantityPerUnit * float64(ingredient.CostPerUnitCents)
	}
	return int64(math.Round(cost)), nil
}

func (s *Service) AddRecipeIngredient(ctx context.Context, productID string, req domain.ProductIngredientRequest) (domain.ProductIngredient, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.ProductIngredient{}, err
	}
	if req.QuantityPerUnit <= 0 {
		return domain.ProductIngredient{}, newValidationError([]string{"quantity per unit must be positive"})
	}

	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return domain.ProductIngredient{}, s.wrapStoreErr("load product", err)
	}
	if _, err := s.repo.GetIngredientByID(ctx, req.IngredientID); err != nil {
		return domain.ProductIngredient{}, s.wrapStoreErr("load ingredient", err)
	}

	existing, err := s.repo.ListProductIngredients(ctx, productID)
	if err != nil {
		return domain.ProductIngredient{}, s.wrapStoreErr("list recipe", err)
	}
	for _, row := range existing {
		if row.IngredientID == req.IngredientID {
			return domain.ProductIngredient{}, fmt.Errorf("%w: ingredient already in recipe", store.ErrConflict)
		}
	}

	created, err := s.repo.AddProductIngredient(ctx, domain.ProductIngredient{
		ID:              xid.New("pi"),
		ProductID:       productID,
		IngredientID:    req.IngredientID,
		QuantityPerUnit: req.QuantityPerUnit,
	})
	if err != nil {
		return domain.ProductIngredient{}, s.wrapStoreErr("add recipe ingredient", err)
	}

	s.logAudit(ctx, "recipe_add", "product_ingredient", created.ID,
		fmt.Sprintf("product=%s,ingredient=%s,qty=%g", productID, req.IngredientID, req.QuantityPerUnit))
	return *created, nil
}

func (s *Service) UpdateRecipeIngredient(ctx context.Context, rowID string, quantityPerUnit float64) (domain.ProductIngredient, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.ProductIngredient{}, err
	}
	if quantityPerUnit <= 0 {
		return domain.ProductIngredient{}, newValidationError([]string{"quantity per unit must be positive"})
	}

	updated, err := s.repo.UpdateProductIngredientQuantity(ctx, rowID, quantityPerUnit)
	if err != nil {
		return domain.ProductIngredient{}, s.wrapStoreErr("update recipe ingredient", err)
	}

	s.logAudit(ctx, "recipe_update", "product_ingredient", updated.ID, fmt.Sprintf("qty=%g", quantityPerUnit))
	return *updated, nil
}

func (s *Service) RemoveRecipeIngredient(ctx context.Context, rowID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	if err := s.repo.RemoveProductIngredient(ctx, rowID); err != nil {
		return s.wrapStoreErr("remove recipe ingredient", err)
	}

	s.logAudit(ctx, "recipe_remove", "product_ingredient", rowID, "")
	return nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	return nil
}

func validateProductFields(name string, priceCents int64, stock int, minStock int, commissionCents int64) []string {
	violations := make([]string, 0, 3)
	if strings.TrimSpace(name) == "" {
		violations = append(violations, "name is required")
	}
	if priceCents < 0 {
		violations = append(violations, "price must not be negative")
	}
	if stock < 0 {
		violations = append(violations, "stock quantity must not be negative")
	}
	if minStock < 0 {
		violations = append(violations, "minimum stock must not be negative")
	}
	if commissionCents < 0 {
		violations = append(violations, "commission must not be negative")
	}
	return violations
}

func validateIngredientFields(name string, quantity float64, minQuantity float64, costCents int64) []string {
	violations := make([]string, 0, 3)
	if strings.TrimSpace(name) == "" {
		violations = append(violations, "name is required")
	}
	if quantity < 0 {
		violations = append(violations, "quantity must not be negative")
	}
	if minQuantity < 0 {
		violations = append(violations, "minimum quantity must not be negative")
	}
	if costCents < 0 {
		violations = append(violations, "cost per unit must not be negative")
	}
	return violations
}
