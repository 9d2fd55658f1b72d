package vouchers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babettepos/internal/apperr"
	"babettepos/internal/erp"
	"babettepos/internal/erp/erptest"
)

var cred = erp.Credentials{UID: 4, Password: "pw"}

// voucherFake knows one gift-card program under the given name.
func voucherFake(programName string) *erptest.Fake {
	f := erptest.NewFake()
	f.On(modelProgram, "search_read", func(args []any, kwargs map[string]any) (any, error) {
		_, name, _ := erptest.Cond(erptest.Domain(args), "name")
		if name == programName {
			return []map[string]any{{"id": 3, "name": programName, "program_type": "gift_card"}}, nil
		}
		return []map[string]any{}, nil
	})
	f.Returns(modelCard, "create", 77)
	f.Returns(modelCard, "search_read", []map[string]any{
		{"id": 77, "code": "044f-2a1c-9b", "points": 25, "expiration_date": "2026-12-31", "partner_id": []any{12, "An Peeters"}},
	})
	return f
}

func TestCreate_AnonymousVoucher(t *testing.T) {
	f := voucherFake("Cadeaubonnen")
	res, err := NewService(f, nil).Create(context.Background(), cred, CreateRequest{Amount: 25})
	require.NoError(t, err)
	assert.Equal(t, "Cadeaubon aangemaakt! Code: 044f-2a1c-9b", res.Message)
	require.NotNil(t, res.Voucher)
	assert.Equal(t, erp.Text("044f-2a1c-9b"), res.Voucher.Code)

	create := f.Calls(modelCard, "create")[0]
	assert.Equal(t, map[string]any{"program_id": float64(3), "points": float64(25)}, create.Args[0])
	for _, c := range f.Calls("", "") {
		assert.NotEqual(t, modelPartner, c.Model, "anonymous vouchers touch no partner")
	}

	prog := f.Calls(modelProgram, "search_read")[0]
	assert.Equal(t, map[string]any{"active_test": false, "lang": "nl_BE"}, prog.Kwargs["context"])
}

func TestCreate_TriesProgramNamesInOrder(t *testing.T) {
	f := voucherFake("Gift Cards")
	_, err := NewService(f, nil).Create(context.Background(), cred, CreateRequest{Amount: 10})
	require.NoError(t, err)

	calls := f.Calls(modelProgram, "search_read")
	require.Len(t, calls, 3)
	for i, want := range ProgramNames {
		_, name, _ := erptest.Cond(erptest.Domain(calls[i].Args), "name")
		assert.Equal(t, want, name)
	}
}

func TestCreate_NoProgram(t *testing.T) {
	f := voucherFake("Iets anders")
	_, err := NewService(f, nil).Create(context.Background(), cred, CreateRequest{Amount: 10})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualError(t, err, "Geen gift card programma gevonden. Geprobeerd: Cadeaubonnen, Geschenkbon, Gift Cards")
	assert.Empty(t, f.Calls(modelCard, "create"))
}

func TestCreate_InvalidAmount(t *testing.T) {
	for _, amount := range []float64{0, -5} {
		_, err := NewService(erptest.NewFake(), nil).Create(context.Background(), cred, CreateRequest{Amount: amount})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.EqualError(t, err, "Amount is required and must be greater than 0")
	}
}

func TestCreate_CustomerIDUsedAsIs(t *testing.T) {
	f := voucherFake("Cadeaubonnen")
	_, err := NewService(f, nil).Create(context.Background(), cred, CreateRequest{Amount: 25, CustomerID: 12, CustomerName: "ignored", ExpiryDate: "2026-12-31"})
	require.NoError(t, err)

	create := f.Calls(modelCard, "create")[0].Args[0].(map[string]any)
	assert.Equal(t, float64(12), create["partner_id"])
	assert.Equal(t, "2026-12-31", create["expiration_date"])
	assert.Empty(t, f.Calls(modelPartner, "search_read"))
}

func TestCreate_ExistingPartnerByName(t *testing.T) {
	f := voucherFake("Cadeaubonnen")
	f.Returns(modelPartner, "search_read", []map[string]any{{"id": 12, "name": "An Peeters"}})

	_, err := NewService(f, nil).Create(context.Background(), cred, CreateRequest{Amount: 25, CustomerName: "  An Peeters "})
	require.NoError(t, err)

	_, name, _ := erptest.Cond(erptest.Domain(f.Calls(modelPartner, "search_read")[0].Args), "name")
	assert.Equal(t, "An Peeters", name)
	assert.Empty(t, f.Calls(modelPartner, "create"))
	assert.Equal(t, float64(12), f.Calls(modelCard, "create")[0].Args[0].(map[string]any)["partner_id"])
}

func TestCreate_NewPartner(t *testing.T) {
	f := voucherFake("Cadeaubonnen")
	f.Returns(modelPartner, "search_read", []map[string]any{})
	f.Returns(modelPartner, "create", 13)

	_, err := NewService(f, nil).Create(context.Background(), cred, CreateRequest{Amount: 25, CustomerName: "Els"})
	require.NoError(t, err)

	created := f.Calls(modelPartner, "create")[0].Args[0]
	assert.Equal(t, map[string]any{"name": "Els", "email": false, "customer_rank": float64(1)}, created)
	assert.Equal(t, float64(13), f.Calls(modelCard, "create")[0].Args[0].(map[string]any)["partner_id"])
}

func TestSearchCustomers(t *testing.T) {
	f := erptest.NewFake()
	f.Returns(modelPartner, "search_read", []map[string]any{
		{"id": 12, "name": "An Peeters", "email": "an@example.be", "phone": false, "city": "Gent"},
	})

	got, err := NewService(f, nil).SearchCustomers(context.Background(), cred, "an")
	require.NoError(t, err)
	require.Len(t, got, 1)
	raw, err := json.Marshal(got[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":12,"name":"An Peeters","email":"an@example.be","phone":null,"city":"Gent"}`, string(raw))

	call := f.Calls(modelPartner, "search_read")[0]
	d := erptest.Domain(call.Args)
	assert.Equal(t, "|", d[0])
	op, rank, _ := erptest.Cond(d, "customer_rank")
	assert.Equal(t, ">", op)
	assert.Equal(t, float64(0), rank)
	assert.Equal(t, float64(20), call.Kwargs["limit"])
}

func TestSearchCustomers_ShortQuery(t *testing.T) {
	f := erptest.NewFake()
	got, err := NewService(f, nil).SearchCustomers(context.Background(), cred, "a")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, f.CallCount())
}

func TestLabelData(t *testing.T) {
	f := voucherFake("Cadeaubonnen")
	svc := NewService(f, nil)

	got, err := svc.LabelData(context.Background(), cred, LabelRequest{VoucherID: 77})
	require.NoError(t, err)
	assert.Equal(t, Label{Code: "044f-2a1c-9b", Amount: 25, Expiry: "2026-12-31"}, got)

	got, err = svc.LabelData(context.Background(), cred, LabelRequest{VoucherCode: "ABC"})
	require.NoError(t, err)
	assert.Equal(t, Label{Code: "ABC"}, got)

	_, err = svc.LabelData(context.Background(), cred, LabelRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "Voucher code is required")
}
