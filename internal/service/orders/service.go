// Package orders runs the web-shop order workflows against the ERP: order
// confirmation, stock availability, delivery validation, shipper dispatch and
// document lookup.
//
// Workflows are sequences of independent ERP calls. Nothing is rolled back;
// a failure part-way leaves earlier steps applied and is reported per item.
package orders

import (
	"context"

	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
)

const (
	modelOrder      = "sale.order"
	modelOrderLine  = "sale.order.line"
	modelPicking    = "stock.picking"
	modelAttachment = "ir.attachment"
	modelPartner    = "res.partner"
	modelProduct    = "product.product"
)

type Service struct {
	caller erp.Caller
	log    *zap.Logger
}

func NewService(caller erp.Caller, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{caller: caller, log: log.Named("orders")}
}

type ConfirmResult struct {
	Order *domain.OrderSummary `json:"order"`
}

// ConfirmOrder calls action_confirm and re-reads the order. The re-read is
// best effort: the confirmation already happened when it fails.
func (s *Service) ConfirmOrder(ctx context.Context, cred erp.Credentials, orderID int) (ConfirmResult, error) {
	env := erp.NewEnv(s.caller, cred)
	raw, err := env.Action(ctx, modelOrder, "action_confirm", []int{orderID}, nil)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !erp.Truthy(raw) {
		return ConfirmResult{}, apperr.Upstream("Failed to confirm order")
	}

	order, err := s.orderSummary(ctx, env, orderID)
	if err != nil {
		s.log.Warn("re-read after confirm failed", zap.Int("order_id", orderID), zap.Error(err))
		return ConfirmResult{}, nil
	}
	return ConfirmResult{Order: order}, nil
}

func (s *Service) orderSummary(ctx context.Context, env *erp.Env, orderID int) (*domain.OrderSummary, error) {
	var rows []domain.OrderSummary
	err := env.SearchRead(ctx, modelOrder,
		[]any{[]any{"id", "=", orderID}},
		erp.Query{Fields: []string{"id", "name", "state"}, Limit: 1},
		&rows,
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *Service) pickings(ctx context.Context, env *erp.Env, orderID int, fields ...string) ([]domain.Picking, error) {
	var rows []domain.Picking
	err := env.SearchRead(ctx, modelPicking,
		[]any{[]any{"sale_id", "=", orderID}},
		erp.Query{Fields: fields},
		&rows,
	)
	return rows, err
}
