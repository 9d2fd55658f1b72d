package labels

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var belgianDutch = language.MustParse("nl-BE")

// Price formats an amount the way Belgian shelf labels show it: "€ 39,95".
func Price(v float64) string {
	return "€ " + message.NewPrinter(belgianDutch).Sprintf("%.2f", v)
}

// VoucherAmount keeps the compact voucher notation, "€25.00".
func VoucherAmount(v float64) string {
	return fmt.Sprintf("€%.2f", v)
}

// ExpiryDate turns an ERP date (YYYY-MM-DD, optionally with a time part)
// into DD/MM/YYYY. Unparseable input yields "".
func ExpiryDate(erpDate string) string {
	if len(erpDate) >= len(time.DateOnly) {
		erpDate = erpDate[:len(time.DateOnly)]
	}
	t, err := time.Parse(time.DateOnly, erpDate)
	if err != nil {
		return ""
	}
	return t.Format("02/01/2006")
}
