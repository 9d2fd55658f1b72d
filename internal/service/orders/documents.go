package orders

import (
	"context"
	"encoding/base64"
	"fmt"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
	"babettepos/internal/service/attachments"
)

var attachmentFields = []string{"id", "name", "datas", "mimetype"}

// pdfAttachments lists the PDFs attached to one record, newest first.
func (s *Service) pdfAttachments(ctx context.Context, env *erp.Env, resModel string, resID int) ([]domain.Attachment, error) {
	var rows []domain.Attachment
	err := env.SearchRead(ctx, modelAttachment,
		[]any{
			[]any{"res_model", "=", resModel},
			[]any{"res_id", "=", resID},
			[]any{"mimetype", "=", "application/pdf"},
		},
		erp.Query{Fields: attachmentFields, Order: "create_date desc"},
		&rows,
	)
	return rows, err
}

func firstOf(rows []domain.Attachment, match func(string) bool) *domain.Attachment {
	for i := range rows {
		if match(rows[i].Name) {
			return &rows[i]
		}
	}
	return nil
}

func names(rows []domain.Attachment) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func decode(a *domain.Attachment) (domain.Document, error) {
	content, err := base64.StdEncoding.DecodeString(string(a.Data))
	if err != nil {
		return domain.Document{}, fmt.Errorf("decode attachment %d: %w", a.ID, apperr.ErrUpstream)
	}
	return domain.Document{Name: a.Name, Content: content}, nil
}

// Invoice returns the newest PDF on the order whose name reads as an invoice.
func (s *Service) Invoice(ctx context.Context, cred erp.Credentials, orderID int) (domain.Document, error) {
	env := erp.NewEnv(s.caller, cred)
	rows, err := s.pdfAttachments(ctx, env, modelOrder, orderID)
	if err != nil {
		return domain.Document{}, err
	}
	inv := firstOf(rows, attachments.IsInvoice)
	if inv == nil || inv.Data == "" {
		return domain.Document{}, apperr.NotFoundWith("Geen factuur gevonden. Bevestig de order eerst.", map[string]any{
			"availableAttachments": names(rows),
		})
	}
	return decode(inv)
}

// ShippingLabel looks on the order first, then on each picking in turn.
func (s *Service) ShippingLabel(ctx context.Context, cred erp.Credentials, orderID int) (domain.Document, error) {
	env := erp.NewEnv(s.caller, cred)
	seen, err := s.pdfAttachments(ctx, env, modelOrder, orderID)
	if err != nil {
		return domain.Document{}, err
	}
	label := firstOf(seen, attachments.IsShippingLabel)

	if label == nil {
		pickings, err := s.pickings(ctx, env, orderID, "id", "name")
		if err != nil {
			return domain.Document{}, err
		}
		for _, p := range pickings {
			rows, err := s.pdfAttachments(ctx, env, modelPicking, p.ID)
			if err != nil {
				return domain.Document{}, err
			}
			seen = append(seen, rows...)
			if label = firstOf(rows, attachments.IsShippingLabel); label != nil {
				break
			}
		}
	}

	if label == nil || label.Data == "" {
		return domain.Document{}, apperr.NotFoundWith(
			"Geen verzendlabel gevonden. Controleer of Sendcloud het label heeft aangemaakt in Odoo.",
			map[string]any{
				"availableAttachments": names(seen),
				"checkedModels":        []string{modelOrder, modelPicking},
			})
	}
	return decode(label)
}

type AttachmentInfo struct {
	ID   int              `json:"id"`
	Name string           `json:"name"`
	Type attachments.Kind `json:"type"`
}

type AttachmentFile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Data string `json:"data"`
}

type OrderAttachments struct {
	OrderName     string           `json:"orderName"`
	OrderState    string           `json:"orderState"`
	Attachments   []AttachmentInfo `json:"attachments"`
	Invoice       *AttachmentFile  `json:"invoice"`
	ShippingLabel *AttachmentFile  `json:"shippingLabel"`
}

// Attachments lists every PDF on the order with its classification. Only the
// order itself is searched; pickings are covered by ShippingLabel.
func (s *Service) Attachments(ctx context.Context, cred erp.Credentials, orderID int) (OrderAttachments, error) {
	env := erp.NewEnv(s.caller, cred)
	order, err := s.orderSummary(ctx, env, orderID)
	if err != nil {
		return OrderAttachments{}, err
	}
	if order == nil {
		return OrderAttachments{}, apperr.NotFound("Order not found")
	}
	rows, err := s.pdfAttachments(ctx, env, modelOrder, orderID)
	if err != nil {
		return OrderAttachments{}, err
	}

	res := OrderAttachments{
		OrderName:   order.Name,
		OrderState:  order.State,
		Attachments: make([]AttachmentInfo, 0, len(rows)),
	}
	for _, r := range rows {
		res.Attachments = append(res.Attachments, AttachmentInfo{ID: r.ID, Name: r.Name, Type: attachments.Classify(r.Name)})
	}
	res.Invoice = fileOf(firstOf(rows, attachments.IsInvoice))
	res.ShippingLabel = fileOf(firstOf(rows, attachments.IsShippingLabel))
	return res, nil
}

func fileOf(a *domain.Attachment) *AttachmentFile {
	if a == nil {
		return nil
	}
	return &AttachmentFile{ID: a.ID, Name: a.Name, Data: string(a.Data)}
}
