// Package attachments classifies order PDFs by filename.
//
// The rules are substring heuristics on the lowercased name. They were tuned
// against the names the ERP and the shipping integration produce and will
// misclassify unusual names.
package attachments

import "strings"

type Kind string

const (
	KindInvoice       Kind = "invoice"
	KindShippingLabel Kind = "shipping_label"
	KindOther         Kind = "other"
)

var (
	invoiceWords = []string{"order", "invoice", "factuur"}
	labelWords   = []string{"shipping", "sendcloud", "label", "verzending"}
	// "order" is deliberately absent: label files are often named after the order.
	labelExclusions = []string{"invoice", "factuur"}
)

func IsInvoice(name string) bool {
	n := strings.ToLower(name)
	return containsAny(n, invoiceWords) && !containsAny(n, labelWords)
}

func IsShippingLabel(name string) bool {
	n := strings.ToLower(name)
	return containsAny(n, labelWords) && !containsAny(n, labelExclusions)
}

func Classify(name string) Kind {
	switch {
	case IsShippingLabel(name):
		return KindShippingLabel
	case IsInvoice(name):
		return KindInvoice
	default:
		return KindOther
	}
}

// LabelKeywords returns the words that mark a shipping label, for building
// ERP name filters.
func LabelKeywords() []string {
	return append([]string(nil), labelWords...)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
