package orders

import (
	"context"

	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
)

const pendingOrdersLimit = 10

var lineFields = []string{"id", "product_id", "product_uom_qty", "price_unit", "price_total"}

type PendingLine struct {
	Product    erp.Many2One `json:"product_id"`
	Quantity   erp.Float    `json:"product_uom_qty"`
	PriceUnit  erp.Float    `json:"price_unit"`
	PriceTotal erp.Float    `json:"price_total"`
}

type PendingOrder struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	DateOrder      erp.Text      `json:"date_order"`
	AmountTotal    erp.Float     `json:"amount_total"`
	Partner        erp.Many2One  `json:"partner_id"`
	PartnerName    string        `json:"partner_name"`
	PartnerEmail   erp.Text      `json:"partner_email"`
	PartnerPhone   erp.Text      `json:"partner_phone"`
	PartnerStreet  erp.Text      `json:"partner_street"`
	PartnerCity    erp.Text      `json:"partner_city"`
	PartnerZip     erp.Text      `json:"partner_zip"`
	PartnerCountry erp.Text      `json:"partner_country"`
	State          string        `json:"state"`
	Website        erp.Many2One  `json:"website_id"`
	PickingState   erp.Text      `json:"picking_state"`
	Lines          []PendingLine `json:"order_line"`
}

// PendingOrders returns the latest web-shop orders that are past the
// quotation stage, each enriched with customer, lines and delivery state.
func (s *Service) PendingOrders(ctx context.Context, cred erp.Credentials) ([]PendingOrder, error) {
	env := erp.NewEnv(s.caller, cred)
	var orders []domain.Order
	err := env.SearchRead(ctx, modelOrder,
		[]any{
			[]any{"state", "in", []string{"sent", "sale", "done"}},
			[]any{"website_id", "!=", false},
		},
		erp.Query{
			Fields: []string{"id", "name", "date_order", "amount_total", "partner_id", "state", "website_id"},
			Order:  "date_order desc",
			Limit:  pendingOrdersLimit,
		},
		&orders,
	)
	if err != nil {
		return nil, err
	}

	out := make([]PendingOrder, 0, len(orders))
	for _, o := range orders {
		po := PendingOrder{
			ID:          o.ID,
			Name:        o.Name,
			DateOrder:   o.DateOrder,
			AmountTotal: o.AmountTotal,
			Partner:     o.Partner,
			PartnerName: "Onbekend",
			State:       o.State,
			Website:     o.Website,
			Lines:       []PendingLine{},
		}

		if o.Partner.Valid() {
			var partners []domain.Partner
			err := env.SearchRead(ctx, modelPartner,
				[]any{[]any{"id", "=", o.Partner.ID}},
				erp.Query{Fields: []string{"name", "email", "phone", "street", "city", "zip", "country_id"}, Limit: 1},
				&partners,
			)
			if err != nil {
				return nil, err
			}
			if len(partners) > 0 {
				p := partners[0]
				if p.Name != "" {
					po.PartnerName = string(p.Name)
				}
				po.PartnerEmail = p.Email
				po.PartnerPhone = p.Phone
				po.PartnerStreet = p.Street
				po.PartnerCity = p.City
				po.PartnerZip = p.Zip
				po.PartnerCountry = erp.Text(p.Country.Name)
			}
		}

		err := env.SearchRead(ctx, modelOrderLine,
			[]any{[]any{"order_id", "=", o.ID}},
			erp.Query{Fields: []string{"product_id", "product_uom_qty", "price_unit", "price_total"}},
			&po.Lines,
		)
		if err != nil {
			return nil, err
		}

		var pickings []domain.Picking
		err = env.SearchRead(ctx, modelPicking,
			[]any{[]any{"sale_id", "=", o.ID}},
			erp.Query{Fields: []string{"state"}, Limit: 1},
			&pickings,
		)
		switch {
		case err != nil:
			s.log.Warn("picking state lookup failed", zap.Int("order_id", o.ID), zap.Error(err))
		case len(pickings) > 0:
			po.PickingState = erp.Text(pickings[0].State)
		}

		out = append(out, po)
	}
	return out, nil
}

type LineAvailability struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Product      erp.Many2One `json:"product_id"`
	Quantity     float64      `json:"product_uom_qty"`
	QtyAvailable float64      `json:"qty_available"`
	IsAvailable  bool         `json:"isAvailable"`
	Shortage     float64      `json:"shortage"`
	PriceUnit    erp.Float    `json:"price_unit"`
	PriceTotal   erp.Float    `json:"price_total"`
}

type Availability struct {
	OrderID      int                `json:"orderId"`
	OrderName    string             `json:"orderName"`
	Products     []LineAvailability `json:"products"`
	AllAvailable bool               `json:"allAvailable"`
	Message      string             `json:"message"`
}

// Availability compares each order line with the product's on-hand quantity.
func (s *Service) Availability(ctx context.Context, cred erp.Credentials, orderID int) (Availability, error) {
	env := erp.NewEnv(s.caller, cred)
	order, err := s.orderWithLines(ctx, env, orderID)
	if err != nil {
		return Availability{}, err
	}
	res := Availability{OrderID: orderID, OrderName: order.Name, Products: []LineAvailability{}, AllAvailable: true}
	if len(order.OrderLines) == 0 {
		res.Message = "No products in order"
		return res, nil
	}

	var lines []domain.OrderLine
	err = env.SearchRead(ctx, modelOrderLine,
		[]any{[]any{"id", "in", order.OrderLines}},
		erp.Query{Fields: lineFields},
		&lines,
	)
	if err != nil {
		return Availability{}, err
	}

	productIDs := make([]int, 0, len(lines))
	for _, l := range lines {
		if l.Product.Valid() {
			productIDs = append(productIDs, l.Product.ID)
		}
	}
	var products []domain.Product
	err = env.SearchRead(ctx, modelProduct,
		[]any{[]any{"id", "in", productIDs}},
		erp.Query{Fields: []string{"id", "name", "qty_available"}},
		&products,
	)
	if err != nil {
		return Availability{}, err
	}
	onHand := make(map[int]float64, len(products))
	for _, p := range products {
		onHand[p.ID] = float64(p.QtyAvailable)
	}

	for _, l := range lines {
		needed := float64(l.Quantity)
		available := onHand[l.Product.ID]
		name := l.Product.Name
		if !l.Product.Valid() {
			name = "Unknown"
			available = 0
		}
		la := LineAvailability{
			ID:           l.ID,
			Name:         name,
			Product:      l.Product,
			Quantity:     needed,
			QtyAvailable: available,
			IsAvailable:  available >= needed,
			Shortage:     max(0, needed-available),
			PriceUnit:    l.PriceUnit,
			PriceTotal:   l.PriceTotal,
		}
		if !la.IsAvailable {
			res.AllAvailable = false
		}
		res.Products = append(res.Products, la)
	}
	if res.AllAvailable {
		res.Message = "All products are available in inventory"
	} else {
		res.Message = "Some products have insufficient inventory"
	}
	return res, nil
}

type MoveLine struct {
	ID                   int          `json:"id"`
	Product              erp.Many2One `json:"product_id"`
	ProductName          string       `json:"product_name"`
	Quantity             erp.Float    `json:"product_uom_qty"`
	QtyDone              float64      `json:"qty_done"`
	QuantityDone         float64      `json:"quantity_done"`
	ReservedAvailability erp.Float    `json:"reserved_availability"`
}

type PickingDetail struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	State       string       `json:"state"`
	PickingType erp.Many2One `json:"picking_type_id"`
	MoveLines   []MoveLine   `json:"move_lines"`
}

// PickingDetails lists the order's pickings. Move lines are taken from the
// order lines since every picking of a web order ships the full order.
func (s *Service) PickingDetails(ctx context.Context, cred erp.Credentials, orderID int) ([]PickingDetail, error) {
	env := erp.NewEnv(s.caller, cred)
	order, err := s.orderWithLines(ctx, env, orderID)
	if err != nil {
		return nil, err
	}

	var lines []domain.OrderLine
	if len(order.OrderLines) > 0 {
		if err := env.Read(ctx, modelOrderLine, order.OrderLines, lineFields, &lines); err != nil {
			return nil, err
		}
	}

	pickings, err := s.pickings(ctx, env, orderID, "id", "name", "state", "picking_type_id")
	if err != nil {
		return nil, err
	}
	if len(pickings) == 0 {
		return nil, apperr.NotFound("Geen leveringsorder gevonden")
	}

	out := make([]PickingDetail, 0, len(pickings))
	for _, p := range pickings {
		moves := make([]MoveLine, 0, len(lines))
		for _, l := range lines {
			name := l.Product.Name
			if !l.Product.Valid() {
				name = "Unknown"
			}
			moves = append(moves, MoveLine{
				ID:                   l.ID,
				Product:              l.Product,
				ProductName:          name,
				Quantity:             l.Quantity,
				ReservedAvailability: l.Quantity,
			})
		}
		out = append(out, PickingDetail{ID: p.ID, Name: p.Name, State: p.State, PickingType: p.PickingType, MoveLines: moves})
	}
	return out, nil
}

func (s *Service) orderWithLines(ctx context.Context, env *erp.Env, orderID int) (domain.Order, error) {
	var rows []domain.Order
	err := env.SearchRead(ctx, modelOrder,
		[]any{[]any{"id", "=", orderID}},
		erp.Query{Fields: []string{"id", "name", "order_line"}, Limit: 1},
		&rows,
	)
	if err != nil {
		return domain.Order{}, err
	}
	if len(rows) == 0 {
		return domain.Order{}, apperr.NotFound("Order not found")
	}
	return rows[0], nil
}
