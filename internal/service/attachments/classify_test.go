package attachments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// These cases pin the heuristic as it behaves today, including names a human
// would file differently.
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{name: "Order - S00123.pdf", want: KindInvoice},
		{name: "INV_2025_0042.pdf", want: KindOther},
		{name: "Invoice INV/2025/0042.pdf", want: KindInvoice},
		{name: "Factuur F2025-17.pdf", want: KindInvoice},
		{name: "Sendcloud_label_123.pdf", want: KindShippingLabel},
		{name: "verzending-S00123.pdf", want: KindShippingLabel},
		{name: "Shipping label order S00123.pdf", want: KindShippingLabel},
		{name: "label_invoice.pdf", want: KindOther},
		{name: "Pakbon.pdf", want: KindOther},
		{name: "Order - 2024.pdf", want: KindInvoice},
		{name: "Sendcloud Label.pdf", want: KindShippingLabel},
		{name: "Shipping Invoice.pdf", want: KindOther},
		{name: "", want: KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
		})
	}
}

func TestInvoiceAndLabelAreExclusive(t *testing.T) {
	names := []string{
		"Order - S00123.pdf", "Sendcloud_label_123.pdf", "order_shipping.pdf",
		"factuur_verzending.pdf", "LABEL.PDF", "invoice.pdf",
	}
	for _, n := range names {
		assert.False(t, IsInvoice(n) && IsShippingLabel(n), n)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name    string
		invoice bool
		label   bool
	}{
		{name: "Order - 2024.pdf", invoice: true},
		{name: "Sendcloud Label.pdf", label: true},
		// "shipping" alone keeps a name out of the invoice set.
		{name: "Shipping Invoice.pdf"},
		{name: "shipping_factuur.pdf"},
		{name: "Invoice 2024.pdf", invoice: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.invoice, IsInvoice(tt.name), "IsInvoice")
			assert.Equal(t, tt.label, IsShippingLabel(tt.name), "IsShippingLabel")
		})
	}
}

func TestCaseInsensitive(t *testing.T) {
	assert.True(t, IsShippingLabel("SENDCLOUD.PDF"))
	assert.True(t, IsInvoice("FACTUUR.PDF"))
}
