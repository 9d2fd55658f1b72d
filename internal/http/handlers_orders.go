package http

import (
	"net/http"

	"babettepos/internal/apperr"
)

type orderRequest struct {
	OrderID int `json:"orderId"`
}

// bindOrderID reads {"orderId": n} and rejects a missing or non-positive id.
func (s *Server) bindOrderID(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeAppError(w, err, "Invalid input")
		return 0, false
	}
	if req.OrderID <= 0 {
		s.writeAppError(w, apperr.Validation("Order ID is required"), "")
		return 0, false
	}
	return req.OrderID, true
}

func (s *Server) handlePendingOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.PendingOrders(r.Context(), credentials(r))
	if err != nil {
		s.writeAppError(w, err, "Failed to fetch pending orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": list})
}

func (s *Server) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	res, err := s.orders.ConfirmOrder(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Failed to confirm order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   res.Order,
		"message": "Order confirmed successfully",
	})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	res, err := s.orders.Availability(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Failed to check product availability")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"orderId":      res.OrderID,
		"orderName":    res.OrderName,
		"products":     res.Products,
		"allAvailable": res.AllAvailable,
		"message":      res.Message,
	})
}

func (s *Server) handleConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	res, err := s.orders.ConfirmDelivery(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Kon leveringsorder niet bevestigen")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"order":             res.Order,
		"confirmedPickings": res.Pickings,
		"message":           "Leveringsorder bevestigd",
	})
}

func (s *Server) handleSendToShipper(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	res, err := s.orders.SendToShipper(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Kon niet naar verzender sturen")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"orderId":      res.OrderID,
		"sentPickings": res.Pickings,
		"message":      "Verzonden naar verzender (Sendcloud)",
	})
}

func (s *Server) handlePickingDetails(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	pickings, err := s.orders.PickingDetails(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Failed to fetch picking details")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"orderId":  orderID,
		"pickings": pickings,
		"message":  "Picking details retrieved",
	})
}

func (s *Server) handleAttachments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	res, err := s.orders.Attachments(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Failed to fetch attachments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"orderName":     res.OrderName,
		"orderState":    res.OrderState,
		"attachments":   res.Attachments,
		"invoice":       res.Invoice,
		"shippingLabel": res.ShippingLabel,
	})
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	doc, err := s.orders.Invoice(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Kon factuur niet downloaden")
		return
	}
	writePDF(w, doc.Name, doc.Content)
}

func (s *Server) handleShippingLabel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.bindOrderID(w, r)
	if !ok {
		return
	}
	doc, err := s.orders.ShippingLabel(r.Context(), credentials(r), orderID)
	if err != nil {
		s.writeAppError(w, err, "Kon verzendlabel niet downloaden")
		return
	}
	writePDF(w, doc.Name, doc.Content)
}
