package http

import (
	"bytes"
	"net/http"
	"strings"

	"babettepos/internal/labels"
	"babettepos/internal/service/vouchers"
)

type createVoucherRequest struct {
	Amount       float64 `json:"amount"`
	CustomerID   int     `json:"customerId" validate:"gte=0"`
	CustomerName string  `json:"customerName" validate:"max=200"`
	Email        string  `json:"email" validate:"omitempty,email"`
	ExpiryDate   string  `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) handleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	customers, err := s.vouchers.SearchCustomers(r.Context(), credentials(r), query)
	if err != nil {
		s.writeAppError(w, err, "Failed to search customers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customers": customers})
}

func (s *Server) handleCreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if !s.bind(w, r, &req) {
		return
	}
	res, err := s.vouchers.Create(r.Context(), credentials(r), vouchers.CreateRequest{
		Amount:       req.Amount,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Email:        req.Email,
		ExpiryDate:   req.ExpiryDate,
	})
	if err != nil {
		s.writeAppError(w, err, "Kon cadeaubon niet aanmaken")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"voucher": res.Voucher,
		"message": res.Message,
	})
}

func (s *Server) handleVoucherLabel(w http.ResponseWriter, r *http.Request) {
	var req vouchers.LabelRequest
	if !s.bind(w, r, &req) {
		return
	}
	data, err := s.vouchers.LabelData(r.Context(), credentials(r), req)
	if err != nil {
		s.writeAppError(w, err, "Kon label niet genereren")
		return
	}
	var buf bytes.Buffer
	err = s.labels.VoucherLabel(&buf, labels.Voucher{Code: data.Code, Amount: data.Amount, Expiry: data.Expiry})
	if err != nil {
		s.writeAppError(w, err, "Kon label niet genereren")
		return
	}
	writeHTML(w, buf.Bytes())
}
