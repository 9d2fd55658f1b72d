package orders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
	"babettepos/internal/metrics"
	"babettepos/internal/service/attachments"
)

// shipperMethods are tried in order until one succeeds. Which one exists
// depends on the shipping connector installed in the ERP.
var shipperMethods = []string{
	"action_send_to_shipper",
	"send_to_shipper",
	"action_generate_carrier_label",
	"generate_carrier_label",
	"send_to_carrier",
}

// validateContext suppresses the backorder and SMS wizards so that
// button_validate completes in one call.
var validateContext = map[string]any{
	"lang":           "nl_BE",
	"tz":             "Europe/Brussels",
	"skip_backorder": true,
	"skip_sms":       true,
}

type PickingOutcome struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Success          bool   `json:"success"`
	AlreadyConfirmed bool   `json:"alreadyConfirmed,omitempty"`
	State            string `json:"state,omitempty"`
	FinalState       string `json:"finalState,omitempty"`
	LabelRequested   bool   `json:"labelRequested,omitempty"`
	Method           string `json:"method,omitempty"`
	Error            string `json:"error,omitempty"`
}

type DeliveryResult struct {
	Order    *domain.OrderSummary `json:"order"`
	Pickings []PickingOutcome     `json:"confirmedPickings"`
}

// ConfirmDelivery validates every open picking of the order. Pickings that
// are already done or cancelled are reported and left alone, so repeating
// the call is harmless. The call fails only when no picking ended up
// validated or already confirmed.
func (s *Service) ConfirmDelivery(ctx context.Context, cred erp.Credentials, orderID int) (DeliveryResult, error) {
	env := erp.NewEnv(s.caller, cred)
	pickings, err := s.pickings(ctx, env, orderID, "id", "name", "state", "carrier_id")
	if err != nil {
		return DeliveryResult{}, err
	}
	if len(pickings) == 0 {
		return DeliveryResult{}, apperr.NotFound("Geen leveringsorder gevonden voor deze order")
	}

	outcomes := make([]PickingOutcome, 0, len(pickings))
	for _, p := range pickings {
		var out PickingOutcome
		if domain.PickingTerminal(p.State) {
			out = PickingOutcome{ID: p.ID, Name: p.Name, State: p.State, AlreadyConfirmed: true}
			metrics.PickingOutcome("confirm_delivery", "already_confirmed")
		} else {
			out = s.validatePicking(ctx, env, p)
			if out.Success {
				metrics.PickingOutcome("confirm_delivery", "success")
			} else {
				metrics.PickingOutcome("confirm_delivery", "failed")
			}
		}
		outcomes = append(outcomes, out)
	}

	result := DeliveryResult{Pickings: outcomes}
	if !anyConfirmed(outcomes) {
		return result, apperr.ValidationWith("Kon leveringsorder niet bevestigen", map[string]any{
			"details":           failureDetails(outcomes),
			"confirmedPickings": outcomes,
		})
	}

	order, err := s.orderSummary(ctx, env, orderID)
	if err != nil {
		s.log.Warn("re-read after delivery confirmation failed", zap.Int("order_id", orderID), zap.Error(err))
	}
	result.Order = order
	return result, nil
}

func (s *Service) validatePicking(ctx context.Context, env *erp.Env, p domain.Picking) PickingOutcome {
	out := PickingOutcome{ID: p.ID, Name: p.Name}

	if _, err := env.Action(ctx, modelPicking, "button_validate", []int{p.ID}, map[string]any{"context": validateContext}); err != nil {
		out.Error = erp.Message(err)
		return out
	}

	var rows []struct {
		ID    int    `json:"id"`
		State string `json:"state"`
	}
	if err := env.Read(ctx, modelPicking, []int{p.ID}, []string{"state"}, &rows); err != nil {
		out.Error = erp.Message(err)
		return out
	}
	if len(rows) == 0 {
		out.Error = "picking disappeared after validation"
		return out
	}
	out.FinalState = rows[0].State
	if out.FinalState != domain.PickingDone {
		out.Error = fmt.Sprintf("picking not done after validation (state: %s)", out.FinalState)
		return out
	}
	out.Success = true

	hasLabel, err := s.hasLabelAttachment(ctx, env, p.ID)
	if err != nil {
		s.log.Warn("label lookup failed", zap.Int("picking_id", p.ID), zap.Error(err))
		return out
	}
	if hasLabel {
		return out
	}
	method, err := s.dispatchToShipper(ctx, env, p.ID)
	if err != nil {
		s.log.Warn("label creation failed", zap.Int("picking_id", p.ID), zap.Error(err))
		return out
	}
	out.LabelRequested = true
	out.Method = method
	return out
}

func (s *Service) hasLabelAttachment(ctx context.Context, env *erp.Env, pickingID int) (bool, error) {
	ids, err := env.Search(ctx, modelAttachment, labelDomain(modelPicking, pickingID), 1)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// labelDomain matches PDF attachments of one record whose name contains any
// label keyword.
func labelDomain(resModel string, resID int) []any {
	domain := []any{
		[]any{"res_model", "=", resModel},
		[]any{"res_id", "=", resID},
		[]any{"mimetype", "=", "application/pdf"},
	}
	words := attachments.LabelKeywords()
	for i := 0; i < len(words)-1; i++ {
		domain = append(domain, "|")
	}
	for _, w := range words {
		domain = append(domain, []any{"name", "ilike", w})
	}
	return domain
}

type ShipperResult struct {
	OrderID  int              `json:"orderId"`
	Pickings []PickingOutcome `json:"sentPickings"`
}

// SendToShipper pushes every picking of the order to the shipping connector.
func (s *Service) SendToShipper(ctx context.Context, cred erp.Credentials, orderID int) (ShipperResult, error) {
	env := erp.NewEnv(s.caller, cred)
	pickings, err := s.pickings(ctx, env, orderID, "id", "name", "state", "carrier_id")
	if err != nil {
		return ShipperResult{}, err
	}
	if len(pickings) == 0 {
		return ShipperResult{}, apperr.NotFound("Geen leveringsorder gevonden")
	}

	outcomes := make([]PickingOutcome, 0, len(pickings))
	for _, p := range pickings {
		out := PickingOutcome{ID: p.ID, Name: p.Name}
		method, err := s.dispatchToShipper(ctx, env, p.ID)
		if err != nil {
			s.log.Warn("send to shipper failed", zap.Int("picking_id", p.ID), zap.Error(err))
			out.Error = "Kon niet naar verzender sturen - geen werkende methode gevonden"
			metrics.PickingOutcome("send_to_shipper", "failed")
		} else {
			out.Success = true
			out.Method = method
			metrics.PickingOutcome("send_to_shipper", "success")
		}
		outcomes = append(outcomes, out)
	}

	result := ShipperResult{OrderID: orderID, Pickings: outcomes}
	if !anySucceeded(outcomes) {
		return result, apperr.ValidationWith("Kon niet naar verzender sturen", map[string]any{
			"details": failureDetails(outcomes),
		})
	}
	return result, nil
}

func (s *Service) dispatchToShipper(ctx context.Context, env *erp.Env, pickingID int) (string, error) {
	var errs []error
	for _, method := range shipperMethods {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := env.Action(ctx, modelPicking, method, []int{pickingID}, nil); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
			continue
		}
		return method, nil
	}
	return "", errors.Join(errs...)
}

func anyConfirmed(outcomes []PickingOutcome) bool {
	for _, o := range outcomes {
		if o.Success || o.AlreadyConfirmed {
			return true
		}
	}
	return false
}

func anySucceeded(outcomes []PickingOutcome) bool {
	for _, o := range outcomes {
		if o.Success {
			return true
		}
	}
	return false
}

func failureDetails(outcomes []PickingOutcome) []string {
	details := []string{}
	for _, o := range outcomes {
		if o.Error != "" {
			details = append(details, fmt.Sprintf("%s: %s", o.Name, o.Error))
		}
	}
	return details
}
