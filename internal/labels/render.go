// Package labels renders printable 62x29 mm label sheets as HTML with
// embedded barcode images. The browser prints them; no PDF is produced here.
package labels

import (
	"html/template"
	"io"

	"go.uber.org/zap"
)

type Product struct {
	Name    string
	Barcode string
	Price   float64
}

type Voucher struct {
	Code   string
	Amount float64
	// Expiry is an ERP date or empty.
	Expiry string
}

type Renderer struct {
	log *zap.Logger
}

func NewRenderer(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log.Named("labels")}
}

type productView struct {
	Name    string
	Price   string
	Barcode string
	Image   template.URL
}

// ProductLabels writes one label per product, in order. Each distinct
// barcode is encoded once; a barcode that cannot be encoded is printed as
// text only.
func (r *Renderer) ProductLabels(w io.Writer, products []Product) error {
	images := make(map[string]template.URL)
	views := make([]productView, 0, len(products))
	for _, p := range products {
		v := productView{Name: p.Name, Price: Price(p.Price), Barcode: p.Barcode}
		if p.Barcode != "" {
			img, seen := images[p.Barcode]
			if !seen {
				var err error
				img, err = BarcodePNG(p.Barcode)
				if err != nil {
					r.log.Warn("barcode omitted", zap.String("barcode", p.Barcode), zap.Error(err))
				}
				images[p.Barcode] = img
			}
			v.Image = img
		}
		views = append(views, v)
	}
	return productTmpl.Execute(w, views)
}

type voucherView struct {
	Amount string
	Expiry string
	Code   string
	Image  template.URL
	QR     template.URL
}

func (r *Renderer) VoucherLabel(w io.Writer, v Voucher) error {
	view := voucherView{Amount: VoucherAmount(v.Amount), Expiry: ExpiryDate(v.Expiry), Code: v.Code}
	var err error
	if view.Image, err = BarcodePNG(v.Code); err != nil {
		r.log.Warn("voucher barcode omitted", zap.String("code", v.Code), zap.Error(err))
	}
	if view.QR, err = QRCodePNG(v.Code); err != nil {
		r.log.Warn("voucher qr omitted", zap.String("code", v.Code), zap.Error(err))
	}
	return voucherTmpl.Execute(w, view)
}

const pageStyle = `
    @page { size: 62mm 29mm; margin: 0; }
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body { font-family: Arial, sans-serif; }
    .label {
      width: 62mm; height: 29mm; padding: 2mm;
      display: flex; flex-direction: column; justify-content: center; align-items: center;
      text-align: center; page-break-after: always; overflow: hidden;
    }
    .label:last-child { page-break-after: auto; }`

var productTmpl = template.Must(template.New("products").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Labels</title>
  <style>` + pageStyle + `
    .name { font-size: 8pt; font-weight: bold; line-height: 1.2; max-height: 8mm; overflow: hidden; }
    .price { font-size: 12pt; font-weight: bold; margin: 0.5mm 0; }
    .barcode { max-width: 56mm; max-height: 8mm; height: auto; }
    .code { font-size: 7pt; font-family: 'Courier New', monospace; }
  </style>
</head>
<body>
{{- range .}}
  <div class="label">
    <div class="name">{{.Name}}</div>
    <div class="price">{{.Price}}</div>
    {{- if .Image}}
    <img src="{{.Image}}" class="barcode" alt="Barcode">
    {{- end}}
    {{- if .Barcode}}
    <div class="code">{{.Barcode}}</div>
    {{- end}}
  </div>
{{- end}}
  <script>window.onload = function () { setTimeout(function () { window.print(); }, 400); };</script>
</body>
</html>
`))

var voucherTmpl = template.Must(template.New("voucher").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Cadeaubon</title>
  <style>` + pageStyle + `
    .amount-line { font-size: 11pt; font-weight: bold; margin-bottom: 1.5mm; white-space: nowrap; }
    .row { display: flex; align-items: center; gap: 1mm; }
    .barcode { max-width: 44mm; height: auto; }
    .qr { width: 12mm; height: 12mm; }
    .code { font-size: 9pt; font-weight: bold; letter-spacing: 0.5px; font-family: 'Courier New', monospace; color: #333; }
  </style>
</head>
<body>
  <div class="label">
    <div class="amount-line">{{.Amount}}{{if .Expiry}} geldig tot: {{.Expiry}}{{end}}</div>
    <div class="row">
      {{- if .Image}}
      <img src="{{.Image}}" class="barcode" alt="Barcode">
      {{- end}}
      {{- if .QR}}
      <img src="{{.QR}}" class="qr" alt="QR">
      {{- end}}
    </div>
    <div class="code">{{.Code}}</div>
  </div>
  <script>window.onload = function () { setTimeout(function () { window.print(); }, 400); };</script>
</body>
</html>
`))
