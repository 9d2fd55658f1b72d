package http

import (
	"bytes"
	"net/http"

	"babettepos/internal/labels"
	"babettepos/internal/service/catalog"
)

type scanRequest struct {
	Barcode   string `json:"barcode"`
	ProductID int    `json:"productId" validate:"gte=0"`
	Light     bool   `json:"light"`
}

type productIDsRequest struct {
	ProductIDs []int `json:"productIds" validate:"dive,gt=0"`
}

type adjustStockRequest struct {
	Items []catalog.StockItem `json:"items" validate:"dive"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.bind(w, r, &req) {
		return
	}
	res, err := s.catalog.Scan(r.Context(), credentials(r), catalog.ScanRequest{
		Barcode:   req.Barcode,
		ProductID: req.ProductID,
		Light:     req.Light,
	})
	if err != nil {
		s.writeAppError(w, err, "Failed to scan product")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProductImages(w http.ResponseWriter, r *http.Request) {
	var req productIDsRequest
	if !s.bind(w, r, &req) {
		return
	}
	images, err := s.catalog.Images(r.Context(), credentials(r), req.ProductIDs)
	if err != nil {
		s.writeAppError(w, err, "Failed to fetch product images")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

func (s *Server) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if !s.bind(w, r, &req) {
		return
	}
	res, err := s.catalog.AdjustStock(r.Context(), credentials(r), req.Items)
	if err != nil {
		s.writeAppError(w, err, "Failed to adjust stock")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProductLabels(w http.ResponseWriter, r *http.Request) {
	var req productIDsRequest
	if !s.bind(w, r, &req) {
		return
	}
	products, err := s.catalog.LabelProducts(r.Context(), credentials(r), req.ProductIDs)
	if err != nil {
		s.writeAppError(w, err, "Kon labels niet genereren")
		return
	}
	sheet := make([]labels.Product, 0, len(products))
	for _, p := range products {
		sheet = append(sheet, labels.Product{Name: p.Name, Barcode: p.Barcode, Price: p.ListPrice})
	}
	var buf bytes.Buffer
	if err := s.labels.ProductLabels(&buf, sheet); err != nil {
		s.writeAppError(w, err, "Kon labels niet genereren")
		return
	}
	writeHTML(w, buf.Bytes())
}
