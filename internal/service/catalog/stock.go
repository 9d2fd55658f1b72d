package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/erp"
)

type StockItem struct {
	ProductID int     `json:"productId" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"gte=0"`
}

type StockItemResult struct {
	ProductID int    `json:"productId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type StockResult struct {
	Success bool              `json:"success"`
	Results []StockItemResult `json:"results"`
	Message string            `json:"message"`
}

// AdjustStock sets the counted quantity of each product in the first
// warehouse's stock location and applies it. Items are independent: one
// failing does not stop the rest.
func (s *Service) AdjustStock(ctx context.Context, cred erp.Credentials, items []StockItem) (StockResult, error) {
	if len(items) == 0 {
		return StockResult{}, apperr.Validation("Items array is required")
	}
	env := erp.NewEnv(s.caller, cred)

	var warehouses []struct {
		ID       int          `json:"id"`
		Name     string       `json:"name"`
		LotStock erp.Many2One `json:"lot_stock_id"`
	}
	err := env.SearchRead(ctx, modelWarehouse, nil,
		erp.Query{Fields: []string{"id", "name", "lot_stock_id"}, Limit: 1},
		&warehouses,
	)
	if err != nil {
		return StockResult{}, err
	}
	if len(warehouses) == 0 || !warehouses[0].LotStock.Valid() {
		return StockResult{}, apperr.Upstream("Geen magazijn gevonden in Odoo")
	}
	location := warehouses[0].LotStock.ID

	res := StockResult{Results: make([]StockItemResult, 0, len(items))}
	adjusted := 0
	for _, item := range items {
		r := StockItemResult{ProductID: item.ProductID}
		if err := s.setQuantity(ctx, env, location, item); err != nil {
			s.log.Warn("stock adjustment failed", zap.Int("product_id", item.ProductID), zap.Error(err))
			r.Error = erp.Message(err)
		} else {
			r.Success = true
			adjusted++
		}
		res.Results = append(res.Results, r)
	}
	res.Success = adjusted > 0
	res.Message = fmt.Sprintf("%d van %d producten aangepast", adjusted, len(items))
	return res, nil
}

func (s *Service) setQuantity(ctx context.Context, env *erp.Env, location int, item StockItem) error {
	quants, err := env.Search(ctx, modelQuant,
		[]any{
			[]any{"product_id", "=", item.ProductID},
			[]any{"location_id", "=", location},
		}, 1)
	if err != nil {
		return err
	}
	if len(quants) == 0 {
		id, err := env.Create(ctx, modelQuant, map[string]any{
			"product_id":         item.ProductID,
			"location_id":        location,
			"inventory_quantity": item.Quantity,
		})
		if err != nil {
			return err
		}
		quants = []int{id}
	} else if err := env.Write(ctx, modelQuant, quants, map[string]any{"inventory_quantity": item.Quantity}); err != nil {
		return err
	}
	_, err = env.Action(ctx, modelQuant, "action_apply_inventory", quants, nil)
	return err
}
