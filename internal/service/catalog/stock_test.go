package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babettepos/internal/apperr"
	"babettepos/internal/erp"
	"babettepos/internal/erp/erptest"
)

var errQuant = &erp.RPCError{Code: 200, Message: "Quantity cannot be negative"}

func stockFake() *erptest.Fake {
	f := erptest.NewFake()
	f.Returns(modelWarehouse, "search_read", []map[string]any{{"id": 1, "name": "WH", "lot_stock_id": []any{8, "WH/Stock"}}})
	f.On(modelQuant, "search", func(args []any, kwargs map[string]any) (any, error) {
		_, p, _ := erptest.Cond(erptest.Domain(args), "product_id")
		if erptest.IntValue(p) == 100 {
			return []int{55}, nil
		}
		return []int{}, nil
	})
	f.Returns(modelQuant, "create", 56)
	f.Returns(modelQuant, "write", true)
	f.Returns(modelQuant, "action_apply_inventory", true)
	return f
}

func TestAdjustStock_UpdatesAndCreatesQuants(t *testing.T) {
	f := stockFake()
	res, err := newService(f).AdjustStock(context.Background(), cred, []StockItem{
		{ProductID: 100, Quantity: 4},
		{ProductID: 101, Quantity: 2},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "2 van 2 producten aangepast", res.Message)

	writes := f.Calls(modelQuant, "write")
	require.Len(t, writes, 1)
	assert.Equal(t, []any{float64(55)}, writes[0].Args[0])
	assert.Equal(t, map[string]any{"inventory_quantity": float64(4)}, writes[0].Args[1])

	creates := f.Calls(modelQuant, "create")
	require.Len(t, creates, 1)
	assert.Equal(t, map[string]any{"product_id": float64(101), "location_id": float64(8), "inventory_quantity": float64(2)}, creates[0].Args[0])

	applies := f.Calls(modelQuant, "action_apply_inventory")
	require.Len(t, applies, 2)
	assert.Equal(t, []any{float64(55)}, applies[0].Args[0])
	assert.Equal(t, []any{float64(56)}, applies[1].Args[0])

	search := f.Calls(modelQuant, "search")[0]
	_, loc, _ := erptest.Cond(erptest.Domain(search.Args), "location_id")
	assert.Equal(t, float64(8), loc)
}

func TestAdjustStock_PerItemFailure(t *testing.T) {
	f := stockFake()
	f.On(modelQuant, "action_apply_inventory", func(args []any, kwargs map[string]any) (any, error) {
		if erptest.IDs(args[0])[0] == 56 {
			return nil, errQuant
		}
		return true, nil
	})

	res, err := newService(f).AdjustStock(context.Background(), cred, []StockItem{
		{ProductID: 100, Quantity: 4},
		{ProductID: 101, Quantity: 2},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "1 van 2 producten aangepast", res.Message)
	assert.True(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
	assert.Equal(t, "Quantity cannot be negative", res.Results[1].Error)
}

func TestAdjustStock_AllFailedReportsUnsuccessful(t *testing.T) {
	f := stockFake()
	f.Fails(modelQuant, "search", "Access Denied")

	res, err := newService(f).AdjustStock(context.Background(), cred, []StockItem{{ProductID: 100, Quantity: 1}})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "0 van 1 producten aangepast", res.Message)
}

func TestAdjustStock_NoWarehouse(t *testing.T) {
	f := stockFake()
	f.Returns(modelWarehouse, "search_read", []map[string]any{})

	_, err := newService(f).AdjustStock(context.Background(), cred, []StockItem{{ProductID: 100, Quantity: 1}})
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.EqualError(t, err, "Geen magazijn gevonden in Odoo")
}

func TestAdjustStock_NoItems(t *testing.T) {
	_, err := newService(stockFake()).AdjustStock(context.Background(), cred, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "Items array is required")
}

func TestImages(t *testing.T) {
	f := erptest.NewFake()
	f.Returns(modelProduct, "search_read", []map[string]any{
		{"id": 1, "image_1920": "iVBORw0KGgo="},
		{"id": 2, "image_1920": false},
	})

	images, err := newService(f).Images(context.Background(), cred, []int{1, 2})
	require.NoError(t, err)
	raw, err := json.Marshal(images)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":"iVBORw0KGgo=","2":null}`, string(raw))

	call := f.Calls(modelProduct, "search_read")[0]
	assert.Equal(t, []any{"id", "image_1920"}, call.Kwargs["fields"])

	_, err = newService(f).Images(context.Background(), cred, nil)
	assert.EqualError(t, err, "productIds array is required")
}

func TestLabelProducts_KeepsOrderAndDuplicates(t *testing.T) {
	f := erptest.NewFake()
	f.Returns(modelProduct, "search_read", []map[string]any{
		{"id": 1, "name": "Trui", "barcode": "5412345678901", "list_price": 39.95},
		{"id": 2, "name": "Muts", "barcode": false, "list_price": 15},
	})

	got, err := newService(f).LabelProducts(context.Background(), cred, []int{2, 1, 2, 99})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{2, 1, 2}, []int{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "", got[0].Barcode)
	assert.Equal(t, 39.95, got[1].ListPrice)

	_, err = newService(f).LabelProducts(context.Background(), cred, []int{})
	assert.EqualError(t, err, "Product IDs array is required")
}
