// Package vouchers issues gift vouchers (loyalty cards on a gift-card
// program) and looks up the customers they are issued to.
package vouchers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
)

const (
	modelProgram = "loyalty.program"
	modelCard    = "loyalty.card"
	modelPartner = "res.partner"

	minQueryLength = 2
	customerLimit  = 20
)

// ProgramNames are tried in order; shops name their gift-card program
// differently per database.
var ProgramNames = []string{"Cadeaubonnen", "Geschenkbon", "Gift Cards"}

type Service struct {
	caller erp.Caller
	log    *zap.Logger
}

func NewService(caller erp.Caller, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{caller: caller, log: log.Named("vouchers")}
}

type CreateRequest struct {
	Amount       float64 `json:"amount"`
	CustomerID   int     `json:"customerId"`
	CustomerName string  `json:"customerName"`
	Email        string  `json:"email"`
	ExpiryDate   string  `json:"expiryDate"`
}

type CreateResult struct {
	Voucher *domain.LoyaltyCard `json:"voucher"`
	Message string              `json:"message"`
}

// Create issues a voucher worth req.Amount. When only a customer name is
// given the partner is looked up by exact name and created if missing.
func (s *Service) Create(ctx context.Context, cred erp.Credentials, req CreateRequest) (CreateResult, error) {
	if req.Amount <= 0 {
		return CreateResult{}, apperr.Validation("Amount is required and must be greater than 0")
	}
	env := erp.NewEnv(s.caller, cred)

	programID, err := s.giftCardProgram(ctx, env)
	if err != nil {
		return CreateResult{}, err
	}

	partnerID, err := s.resolvePartner(ctx, env, req)
	if err != nil {
		return CreateResult{}, err
	}

	values := map[string]any{"program_id": programID, "points": req.Amount}
	if partnerID > 0 {
		values["partner_id"] = partnerID
	}
	if req.ExpiryDate != "" {
		values["expiration_date"] = req.ExpiryDate
	}
	cardID, err := env.Create(ctx, modelCard, values)
	if err != nil {
		return CreateResult{}, err
	}
	s.log.Info("voucher created", zap.Int("card_id", cardID), zap.Float64("amount", req.Amount), zap.Int("partner_id", partnerID))

	card, err := s.card(ctx, env, cardID, "id", "code", "points", "expiration_date", "partner_id")
	if err != nil {
		return CreateResult{}, err
	}
	res := CreateResult{Voucher: card, Message: "Cadeaubon aangemaakt!"}
	if card != nil && card.Code != "" {
		res.Message = fmt.Sprintf("Cadeaubon aangemaakt! Code: %s", card.Code)
	}
	return res, nil
}

func (s *Service) giftCardProgram(ctx context.Context, env *erp.Env) (int, error) {
	for _, name := range ProgramNames {
		var rows []struct {
			ID int `json:"id"`
		}
		err := env.SearchRead(ctx, modelProgram,
			[]any{
				[]any{"name", "=", name},
				[]any{"program_type", "=", "gift_card"},
			},
			erp.Query{
				Fields:  []string{"id", "name", "program_type"},
				Limit:   1,
				Context: map[string]any{"active_test": false, "lang": "nl_BE"},
			},
			&rows,
		)
		if err != nil {
			return 0, err
		}
		if len(rows) > 0 {
			return rows[0].ID, nil
		}
	}
	return 0, apperr.NotFound("Geen gift card programma gevonden. Geprobeerd: " + strings.Join(ProgramNames, ", "))
}

// resolvePartner returns 0 for an anonymous voucher.
func (s *Service) resolvePartner(ctx context.Context, env *erp.Env, req CreateRequest) (int, error) {
	if req.CustomerID > 0 {
		return req.CustomerID, nil
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return 0, nil
	}

	var rows []struct {
		ID int `json:"id"`
	}
	err := env.SearchRead(ctx, modelPartner,
		[]any{[]any{"name", "=", name}},
		erp.Query{Fields: []string{"id", "name"}, Limit: 1},
		&rows,
	)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return rows[0].ID, nil
	}

	var email any = false
	if req.Email != "" {
		email = req.Email
	}
	return env.Create(ctx, modelPartner, map[string]any{
		"name":          name,
		"email":         email,
		"customer_rank": 1,
	})
}

func (s *Service) card(ctx context.Context, env *erp.Env, id int, fields ...string) (*domain.LoyaltyCard, error) {
	var rows []domain.LoyaltyCard
	err := env.SearchRead(ctx, modelCard,
		[]any{[]any{"id", "=", id}},
		erp.Query{Fields: fields, Limit: 1},
		&rows,
	)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

type Customer struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Email erp.Text `json:"email"`
	Phone erp.Text `json:"phone"`
	City  erp.Text `json:"city"`
}

// SearchCustomers matches name or email. Queries shorter than two
// characters return nothing without calling the ERP.
func (s *Service) SearchCustomers(ctx context.Context, cred erp.Credentials, query string) ([]Customer, error) {
	out := []Customer{}
	if len([]rune(query)) < minQueryLength {
		return out, nil
	}
	err := erp.NewEnv(s.caller, cred).SearchRead(ctx, modelPartner,
		[]any{
			"|",
			[]any{"name", "ilike", query},
			[]any{"email", "ilike", query},
			[]any{"customer_rank", ">", 0},
		},
		erp.Query{Fields: []string{"id", "name", "email", "phone", "city"}, Limit: customerLimit, Order: "name asc"},
		&out,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type LabelRequest struct {
	VoucherCode string `json:"voucherCode"`
	VoucherID   int    `json:"voucherId"`
}

// Label is what a voucher label shows. Expiry is an ERP date (YYYY-MM-DD)
// or empty.
type Label struct {
	Code   string
	Amount float64
	Expiry string
}

// LabelData resolves the label contents. A voucher id overrides the code
// when the card exists; an unknown id falls back to the given code.
func (s *Service) LabelData(ctx context.Context, cred erp.Credentials, req LabelRequest) (Label, error) {
	label := Label{Code: strings.TrimSpace(req.VoucherCode)}
	if req.VoucherID > 0 {
		card, err := s.card(ctx, erp.NewEnv(s.caller, cred), req.VoucherID, "id", "code", "points", "expiration_date")
		if err != nil {
			return Label{}, err
		}
		if card != nil {
			label = Label{Code: card.Code.String(), Amount: float64(card.Points), Expiry: card.ExpirationDate.String()}
		}
	}
	if label.Code == "" {
		return Label{}, apperr.Validation("Voucher code is required")
	}
	return label, nil
}
