// Package catalog answers the counter's product questions: scans, variant
// listings, images, label data and manual stock corrections.
package catalog

import (
	"context"

	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
	"babettepos/internal/service/attrcache"
)

const (
	modelProduct   = "product.product"
	modelTemplate  = "product.template"
	modelWarehouse = "stock.warehouse"
	modelQuant     = "stock.quant"
)

type Service struct {
	caller erp.Caller
	attrs  *attrcache.Cache
	log    *zap.Logger
}

func NewService(caller erp.Caller, attrs *attrcache.Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{caller: caller, attrs: attrs, log: log.Named("catalog")}
}

// Images returns image_1920 per product id. Products without an image map to
// an empty Text, which encodes as null.
func (s *Service) Images(ctx context.Context, cred erp.Credentials, ids []int) (map[int]erp.Text, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("productIds array is required")
	}
	var rows []domain.Product
	err := erp.NewEnv(s.caller, cred).SearchRead(ctx, modelProduct,
		[]any{[]any{"id", "in", ids}},
		erp.Query{Fields: []string{"id", "image_1920"}},
		&rows,
	)
	if err != nil {
		return nil, err
	}
	out := make(map[int]erp.Text, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Image
	}
	return out, nil
}

// LabelProduct is what a shelf label needs.
type LabelProduct struct {
	ID        int
	Name      string
	Barcode   string
	ListPrice float64
}

// LabelProducts resolves ids for label printing. The result follows the
// order of ids and repeats a product once per occurrence; unknown ids are
// skipped.
func (s *Service) LabelProducts(ctx context.Context, cred erp.Credentials, ids []int) ([]LabelProduct, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("Product IDs array is required")
	}
	var rows []domain.Product
	err := erp.NewEnv(s.caller, cred).SearchRead(ctx, modelProduct,
		[]any{[]any{"id", "in", ids}},
		erp.Query{Fields: []string{"id", "name", "barcode", "list_price"}},
		&rows,
	)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]LabelProduct, len(rows))
	for _, r := range rows {
		byID[r.ID] = LabelProduct{ID: r.ID, Name: r.Name, Barcode: r.Barcode.String(), ListPrice: float64(r.ListPrice)}
	}
	out := make([]LabelProduct, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
