package models

import (
	"encoding/json"
	"testing"
)

func fptr(v float64) *float64 { return &v }
func sptr(s string) *string   { return &s }

func TestExpenseRecordUnmarshal(t *testing.T) {
	t.Run("typed fields and extras", func(t *testing.T) {
		data := `{"amount": 49.9, "currency": "MAD", "category": "food",
			"description": "tajine", "date": "2025-03-01",
			"payment_method": "cash", "vendor": "Chez Ali", "tip": 5}`

		var r ExpenseRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if r.Amount == nil || *r.Amount != 49.9 {
			t.Errorf("amount = %v, want 49.9", r.Amount)
		}
		if r.Category == nil || *r.Category != "food" {
			t.Errorf("category = %v, want food", r.Category)
		}
		if got := r.Extra["vendor"]; got != "Chez Ali" {
			t.Errorf("extra vendor = %v, want Chez Ali", got)
		}
		if got := r.Extra["tip"]; got != float64(5) {
			t.Errorf("extra tip = %v, want 5", got)
		}
	})

	t.Run("quoted amount", func(t *testing.T) {
		var r ExpenseRecord
		if err := json.Unmarshal([]byte(`{"amount": "129.99"}`), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if r.Amount == nil || *r.Amount != 129.99 {
			t.Errorf("amount = %v, want 129.99", r.Amount)
		}
	})

	t.Run("null is absent", func(t *testing.T) {
		var r ExpenseRecord
		if err := json.Unmarshal([]byte(`{"amount": null, "date": null}`), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if r.Amount != nil {
			t.Errorf("amount = %v, want nil", *r.Amount)
		}
		if r.Date != nil {
			t.Errorf("date = %q, want nil", *r.Date)
		}
	})

	t.Run("non-numeric amount rejected", func(t *testing.T) {
		var r ExpenseRecord
		if err := json.Unmarshal([]byte(`{"amount": "a lot"}`), &r); err == nil {
			t.Fatal("expected error for non-numeric amount")
		}
	})

	t.Run("empty string stays present", func(t *testing.T) {
		var r ExpenseRecord
		if err := json.Unmarshal([]byte(`{"category": ""}`), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if r.Category == nil {
			t.Fatal("category should be present")
		}
		if got := r.CategoryOrOther(); got != "other" {
			t.Errorf("CategoryOrOther = %q, want other", got)
		}
	})
}

func TestExpenseRecordMarshalOrder(t *testing.T) {
	r := ExpenseRecord{
		Amount:   fptr(12.5),
		Currency: sptr("MAD"),
		Date:     sptr("2025-01-02"),
		Extra:    map[string]any{"vendor": "Marjane", "aisle": "3"},
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"amount":12.5,"currency":"MAD","date":"2025-01-02","aisle":"3","vendor":"Marjane"}`
	if string(b) != want {
		t.Errorf("marshal = %s, want %s", b, want)
	}
}

func TestExpenseRecordRoundTrip(t *testing.T) {
	in := `{"amount":75,"currency":"EUR","note":"split with Sara"}`
	var r ExpenseRecord
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Errorf("round trip = %s, want %s", out, in)
	}
}

func TestGroupKey(t *testing.T) {
	cases := []struct {
		name   string
		record ExpenseRecord
		field  string
		want   string
	}{
		{"category present", ExpenseRecord{Category: sptr("food")}, "category", "food"},
		{"category missing", ExpenseRecord{}, "category", "other"},
		{"category empty", ExpenseRecord{Category: sptr("")}, "category", "other"},
		{"payment method", ExpenseRecord{PaymentMethod: sptr("card")}, "payment_method", "card"},
		{"date", ExpenseRecord{Date: sptr("2025-01-01")}, "date", "2025-01-01"},
		{"amount", ExpenseRecord{Amount: fptr(10.5)}, "amount", "10.5"},
		{"amount zero", ExpenseRecord{Amount: fptr(0)}, "amount", "other"},
		{"extra field", ExpenseRecord{Extra: map[string]any{"vendor": "Acme"}}, "vendor", "Acme"},
		{"extra missing", ExpenseRecord{}, "vendor", "other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.record.GroupKey(tc.field); got != tc.want {
				t.Errorf("GroupKey(%q) = %q, want %q", tc.field, got, tc.want)
			}
		})
	}
}

func TestCoercionHelpers(t *testing.T) {
	var r ExpenseRecord
	if got := r.AmountOrZero(); got != 0 {
		t.Errorf("AmountOrZero = %v, want 0", got)
	}
	if got := r.PaymentOrUnknown(); got != "unknown" {
		t.Errorf("PaymentOrUnknown = %q, want unknown", got)
	}
	if r.HasDate() {
		t.Error("HasDate on empty record should be false")
	}
	r.Date = sptr("")
	if r.HasDate() {
		t.Error("HasDate on empty date string should be false")
	}
}

func TestFieldsUnion(t *testing.T) {
	r := ExpenseRecord{
		Amount: fptr(100),
		Extra:  map[string]any{"vendor": "Carrefour"},
	}
	fields := r.Fields()
	if len(fields) != 2 {
		t.Fatalf("fields = %v, want 2 entries", fields)
	}
	if fields["amount"] != float64(100) {
		t.Errorf("amount = %v, want 100", fields["amount"])
	}
	if fields["vendor"] != "Carrefour" {
		t.Errorf("vendor = %v, want Carrefour", fields["vendor"])
	}
}
