package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
	"babettepos/internal/service/attrcache"
)

const searchLimit = 50

var (
	productFields = []string{"id", "name", "barcode", "product_tmpl_id", "qty_available", "list_price"}
	variantFields = []string{"id", "name", "display_name", "barcode", "qty_available", "list_price", "product_template_attribute_value_ids"}

	firstNumber = regexp.MustCompile(`\d+`)
)

type ScanRequest struct {
	Barcode   string
	ProductID int
	// Light skips the variant listing and returns only the scanned product.
	Light bool
}

type Variant struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Barcode      erp.Text  `json:"barcode"`
	QtyAvailable erp.Float `json:"qty_available"`
	ListPrice    erp.Float `json:"list_price"`
	IsScanned    bool      `json:"isScanned"`
	Attributes   erp.Text  `json:"attributes"`
}

type ScannedVariant struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Barcode      erp.Text  `json:"barcode"`
	QtyAvailable erp.Float `json:"qty_available"`
	ListPrice    erp.Float `json:"list_price"`
}

type VariantListing struct {
	Success          bool            `json:"success"`
	ProductName      string          `json:"productName"`
	ScannedVariantID int             `json:"scannedVariantId,omitempty"`
	ScannedVariant   *ScannedVariant `json:"scannedVariant,omitempty"`
	Variants         []Variant       `json:"variants"`
	TotalVariants    int             `json:"totalVariants"`
}

type SearchHit struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Barcode      erp.Text  `json:"barcode"`
	QtyAvailable erp.Float `json:"qty_available"`
	ListPrice    erp.Float `json:"list_price"`
	Attributes   erp.Text  `json:"attributes"`
}

type SearchResults struct {
	Success         bool        `json:"success"`
	IsSearchResults bool        `json:"isSearchResults"`
	Results         []SearchHit `json:"searchResults"`
	TotalResults    int         `json:"totalResults"`
}

// ScanResult holds exactly one of Listing or Search.
type ScanResult struct {
	Listing *VariantListing
	Search  *SearchResults
}

func (r ScanResult) MarshalJSON() ([]byte, error) {
	if r.Search != nil {
		return json.Marshal(r.Search)
	}
	return json.Marshal(r.Listing)
}

// Scan resolves a scanned barcode, a typed search term or a product id.
func (s *Service) Scan(ctx context.Context, cred erp.Credentials, req ScanRequest) (ScanResult, error) {
	env := erp.NewEnv(s.caller, cred)
	code := strings.TrimSpace(req.Barcode)

	if req.Light && code != "" {
		return s.scanLight(ctx, env, cred, code)
	}

	if req.ProductID > 0 {
		p, err := s.activeProduct(ctx, env, []any{"id", "=", req.ProductID}, productFields)
		if err != nil {
			return ScanResult{}, err
		}
		if p == nil {
			return ScanResult{}, apperr.NotFound("Product niet gevonden")
		}
		listing, err := s.variantListing(ctx, env, cred, *p)
		return ScanResult{Listing: listing}, err
	}

	if code == "" {
		return ScanResult{}, apperr.Validation("Barcode or product name is required")
	}

	p, err := s.activeProduct(ctx, env, []any{"barcode", "=", code}, productFields)
	if err != nil {
		return ScanResult{}, err
	}
	if p == nil {
		var hits []domain.Product
		err := env.SearchRead(ctx, modelProduct,
			[]any{
				"|",
				[]any{"name", "ilike", code},
				[]any{"barcode", "ilike", code},
				[]any{"active", "=", true},
			},
			erp.Query{Fields: append(slices.Clone(productFields), "product_template_attribute_value_ids"), Limit: searchLimit, Order: "name asc"},
			&hits,
		)
		if err != nil {
			return ScanResult{}, err
		}
		switch len(hits) {
		case 0:
			return ScanResult{}, apperr.NotFound(fmt.Sprintf("Geen product gevonden met naam of barcode: %s", code))
		case 1:
			p = &hits[0]
		default:
			results, err := s.searchResults(ctx, cred, hits)
			return ScanResult{Search: results}, err
		}
	}

	listing, err := s.variantListing(ctx, env, cred, *p)
	return ScanResult{Listing: listing}, err
}

func (s *Service) scanLight(ctx context.Context, env *erp.Env, cred erp.Credentials, code string) (ScanResult, error) {
	p, err := s.activeProduct(ctx, env, []any{"barcode", "=", code},
		append(slices.Clone(productFields), "product_template_attribute_value_ids"))
	if err != nil {
		return ScanResult{}, err
	}
	if p == nil {
		return ScanResult{}, apperr.NotFound(fmt.Sprintf("Geen product gevonden met barcode: %s", code))
	}
	attrs, err := s.attrs.Lookup(ctx, cred, p.AttributeValueIDs)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Listing: &VariantListing{
		Success:          true,
		ProductName:      p.Name,
		ScannedVariantID: p.ID,
		Variants: []Variant{{
			ID:           p.ID,
			Name:         p.Name,
			Barcode:      p.Barcode,
			QtyAvailable: p.QtyAvailable,
			ListPrice:    p.ListPrice,
			IsScanned:    true,
			Attributes:   describe(p.AttributeValueIDs, attrs),
		}},
		TotalVariants: 1,
	}}, nil
}

func (s *Service) activeProduct(ctx context.Context, env *erp.Env, leaf []any, fields []string) (*domain.Product, error) {
	var rows []domain.Product
	err := env.SearchRead(ctx, modelProduct,
		[]any{leaf, []any{"active", "=", true}},
		erp.Query{Fields: fields, Limit: 1},
		&rows,
	)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (s *Service) searchResults(ctx context.Context, cred erp.Credentials, hits []domain.Product) (*SearchResults, error) {
	attrs, err := s.attrs.Lookup(ctx, cred, allAttributeIDs(hits))
	if err != nil {
		return nil, err
	}
	out := &SearchResults{Success: true, IsSearchResults: true, Results: make([]SearchHit, 0, len(hits)), TotalResults: len(hits)}
	for _, h := range hits {
		out.Results = append(out.Results, SearchHit{
			ID:           h.ID,
			Name:         h.Name,
			Barcode:      h.Barcode,
			QtyAvailable: h.QtyAvailable,
			ListPrice:    h.ListPrice,
			Attributes:   describe(h.AttributeValueIDs, attrs),
		})
	}
	return out, nil
}

// variantListing fetches the template name and its active variants in
// parallel, then labels each variant with its non-brand attributes.
func (s *Service) variantListing(ctx context.Context, env *erp.Env, cred erp.Credentials, scanned domain.Product) (*VariantListing, error) {
	if !scanned.Template.Valid() {
		return &VariantListing{
			Success:     true,
			ProductName: scanned.Name,
			ScannedVariant: &ScannedVariant{
				ID:           scanned.ID,
				Name:         scanned.Name,
				Barcode:      scanned.Barcode,
				QtyAvailable: scanned.QtyAvailable,
				ListPrice:    scanned.ListPrice,
			},
			Variants:      []Variant{},
			TotalVariants: 1,
		}, nil
	}
	tmplID := scanned.Template.ID

	var (
		templates []struct {
			Name string `json:"name"`
		}
		variants []domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return env.SearchRead(gctx, modelTemplate,
			[]any{[]any{"id", "=", tmplID}},
			erp.Query{Fields: []string{"name"}, Limit: 1},
			&templates,
		)
	})
	g.Go(func() error {
		return env.SearchRead(gctx, modelProduct,
			[]any{[]any{"product_tmpl_id", "=", tmplID}, []any{"active", "=", true}},
			erp.Query{Fields: variantFields, Order: "name asc"},
			&variants,
		)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	attrs, err := s.attrs.Lookup(ctx, cred, allAttributeIDs(variants))
	if err != nil {
		return nil, err
	}

	name := scanned.Name
	if len(templates) > 0 && templates[0].Name != "" {
		name = templates[0].Name
	}
	out := make([]Variant, 0, len(variants))
	for _, v := range variants {
		label := v.DisplayName.String()
		if label == "" {
			label = v.Name
		}
		out = append(out, Variant{
			ID:           v.ID,
			Name:         label,
			Barcode:      v.Barcode,
			QtyAvailable: v.QtyAvailable,
			ListPrice:    v.ListPrice,
			IsScanned:    v.ID == scanned.ID,
			Attributes:   describe(v.AttributeValueIDs, attrs),
		})
	}
	SortVariants(out)

	return &VariantListing{
		Success:          true,
		ProductName:      name,
		ScannedVariantID: scanned.ID,
		Variants:         out,
		TotalVariants:    len(out),
	}, nil
}

func allAttributeIDs(products []domain.Product) []int {
	var ids []int
	for _, p := range products {
		ids = append(ids, p.AttributeValueIDs...)
	}
	return ids
}

// describe joins the attribute values of one variant in their given order,
// leaving out brand ("merk") attributes and ids that did not resolve.
func describe(ids []int, attrs map[int]attrcache.Attribute) erp.Text {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		a, ok := attrs[id]
		if !ok || isBrand(a.AttributeName) {
			continue
		}
		parts = append(parts, a.Name)
	}
	return erp.Text(strings.Join(parts, ", "))
}

func isBrand(attributeName string) bool {
	return strings.Contains(strings.ToLower(attributeName), "merk")
}

// SortVariants orders by the first number in the attribute text ("3 jaar"
// before "12 jaar"), then by Dutch collation. Variants without attributes go
// last.
func SortVariants(vs []Variant) {
	dutch := collate.New(language.Dutch)
	slices.SortStableFunc(vs, func(a, b Variant) int {
		switch {
		case a.Attributes == "" && b.Attributes == "":
			return 0
		case a.Attributes == "":
			return 1
		case b.Attributes == "":
			return -1
		}
		an, aok := leadingNumber(string(a.Attributes))
		bn, bok := leadingNumber(string(b.Attributes))
		if aok && bok && an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
		return dutch.CompareString(string(a.Attributes), string(b.Attributes))
	})
}

func leadingNumber(s string) (int, bool) {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}
