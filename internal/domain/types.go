package domain

import (
	"time"

	"babettepos/internal/erp"
)

type AuditEventType string

const (
	AuditLoginSuccess AuditEventType = "login_success"
	AuditLoginFailure AuditEventType = "login_failure"
	AuditLogout       AuditEventType = "logout"
)

type AuditEvent struct {
	ID        string         `json:"event_id"`
	Type      AuditEventType `json:"event_type"`
	UID       int            `json:"uid,omitempty"`
	Username  string         `json:"username"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"user_agent,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Picking states the ERP uses for stock.picking.
const (
	PickingDraft     = "draft"
	PickingWaiting   = "waiting"
	PickingConfirmed = "confirmed"
	PickingAssigned  = "assigned"
	PickingDone      = "done"
	PickingCancel    = "cancel"
)

// PickingTerminal reports whether no further validation is possible.
func PickingTerminal(state string) bool {
	return state == PickingDone || state == PickingCancel
}

type Picking struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	State       string       `json:"state"`
	Carrier     erp.Many2One `json:"carrier_id"`
	PickingType erp.Many2One `json:"picking_type_id"`
}

type OrderSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

type Order struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	State       string       `json:"state"`
	DateOrder   erp.Text     `json:"date_order"`
	AmountTotal erp.Float    `json:"amount_total"`
	Partner     erp.Many2One `json:"partner_id"`
	Website     erp.Many2One `json:"website_id"`
	OrderLines  []int        `json:"order_line"`
}

type OrderLine struct {
	ID         int          `json:"id"`
	Product    erp.Many2One `json:"product_id"`
	Quantity   erp.Float    `json:"product_uom_qty"`
	PriceUnit  erp.Float    `json:"price_unit"`
	PriceTotal erp.Float    `json:"price_total"`
}

type Partner struct {
	ID      int          `json:"id"`
	Name    erp.Text     `json:"name"`
	Email   erp.Text     `json:"email"`
	Phone   erp.Text     `json:"phone"`
	Street  erp.Text     `json:"street"`
	City    erp.Text     `json:"city"`
	Zip     erp.Text     `json:"zip"`
	Country erp.Many2One `json:"country_id"`
}

// Attachment is an ir.attachment row. Data is base64 as sent by the ERP.
type Attachment struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Data     erp.Text `json:"datas"`
	Mimetype erp.Text `json:"mimetype"`
}

// Document is a decoded file ready to be streamed to the browser.
type Document struct {
	Name    string
	Content []byte
}

type Product struct {
	ID                int          `json:"id"`
	Name              string       `json:"name"`
	DisplayName       erp.Text     `json:"display_name"`
	Barcode           erp.Text     `json:"barcode"`
	Template          erp.Many2One `json:"product_tmpl_id"`
	QtyAvailable      erp.Float    `json:"qty_available"`
	ListPrice         erp.Float    `json:"list_price"`
	AttributeValueIDs []int        `json:"product_template_attribute_value_ids"`
	Image             erp.Text     `json:"image_1920"`
}

type LoyaltyCard struct {
	ID             int          `json:"id"`
	Code           erp.Text     `json:"code"`
	Points         erp.Float    `json:"points"`
	ExpirationDate erp.Text     `json:"expiration_date"`
	Partner        erp.Many2One `json:"partner_id"`
}
