package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ExpenseCategory string

const (
	CategoryTransport     ExpenseCategory = "transport"
	CategoryFood          ExpenseCategory = "food"
	CategoryUtilities     ExpenseCategory = "utilities"
	CategoryRent          ExpenseCategory = "rent"
	CategoryEntertainment ExpenseCategory = "entertainment"
	CategoryShopping      ExpenseCategory = "shopping"
	CategoryHealth        ExpenseCategory = "health"
	CategoryEducation     ExpenseCategory = "education"
	CategoryTravel        ExpenseCategory = "travel"
	CategoryOther         ExpenseCategory = "other"
)

const DefaultCurrency = "MAD"

// Sentinel grouping keys for records missing the grouped field.
const (
	KeyOther   = "other"
	KeyUnknown = "unknown"
)

// Categories lists the extraction vocabulary in canonical order.
func Categories() []string {
	return []string{
		string(CategoryTransport),
		string(CategoryFood),
		string(CategoryUtilities),
		string(CategoryRent),
		string(CategoryEntertainment),
		string(CategoryShopping),
		string(CategoryHealth),
		string(CategoryEducation),
		string(CategoryTravel),
		string(CategoryOther),
	}
}

// ValidCategory reports whether s is one of the known categories.
func ValidCategory(s string) bool {
	for _, c := range Categories() {
		if s == c {
			return true
		}
	}
	return false
}

// SupportedLanguages lists the languages advertised on the info endpoint.
func SupportedLanguages() []string {
	return []string{"English", "French", "Arabic", "Moroccan Darija"}
}

// PreferredKeys is the canonical column order for the typed record
// fields; additional keys follow alphabetically wherever records are
// laid out in tabular form.
func PreferredKeys() []string {
	return []string{"amount", "currency", "category", "description", "date", "payment_method"}
}

// ExpenseRecord is a single spending event. Fields are pointers so an
// omitted key stays distinguishable from a zero value; keys outside the
// typed set are preserved verbatim in Extra so exports can reproduce
// the caller's exact shape. JSON null is treated the same as an absent
// key.
type ExpenseRecord struct {
	Amount        *float64
	Currency      *string
	Category      *string
	Description   *string
	Date          *string
	PaymentMethod *string
	Extra         map[string]any
}

func (r *ExpenseRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = ExpenseRecord{}
	for key, val := range raw {
		if isNull(val) {
			continue
		}
		switch key {
		case "amount":
			amount, err := parseAmount(val)
			if err != nil {
				return err
			}
			r.Amount = &amount
		case "currency":
			if err := parseString(val, key, &r.Currency); err != nil {
				return err
			}
		case "category":
			if err := parseString(val, key, &r.Category); err != nil {
				return err
			}
		case "description":
			if err := parseString(val, key, &r.Description); err != nil {
				return err
			}
		case "date":
			if err := parseString(val, key, &r.Date); err != nil {
				return err
			}
		case "payment_method":
			if err := parseString(val, key, &r.PaymentMethod); err != nil {
				return err
			}
		default:
			var v any
			if err := json.Unmarshal(val, &v); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			if r.Extra == nil {
				r.Extra = make(map[string]any)
			}
			r.Extra[key] = v
		}
	}
	return nil
}

func (r ExpenseRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		kb, _ := json.Marshal(key)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	if r.Amount != nil {
		if err := write("amount", *r.Amount); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		key string
		val *string
	}{
		{"currency", r.Currency},
		{"category", r.Category},
		{"description", r.Description},
		{"date", r.Date},
		{"payment_method", r.PaymentMethod},
	} {
		if f.val == nil {
			continue
		}
		if err := write(f.key, *f.val); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedKeys(r.Extra) {
		if err := write(k, r.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AmountOrZero treats a missing amount as 0.
func (r *ExpenseRecord) AmountOrZero() float64 {
	if r.Amount == nil {
		return 0
	}
	return *r.Amount
}

func (r *ExpenseRecord) CategoryOrOther() string {
	return strOr(r.Category, KeyOther)
}

func (r *ExpenseRecord) PaymentOrUnknown() string {
	return strOr(r.PaymentMethod, KeyUnknown)
}

func (r *ExpenseRecord) DateOrUnknown() string {
	return strOr(r.Date, KeyUnknown)
}

// HasDate reports whether the record carries a usable date.
func (r *ExpenseRecord) HasDate() bool {
	return r.Date != nil && *r.Date != ""
}

// GroupKey returns the record's value under field as a grouping key,
// with missing and empty values coerced to "other".
func (r *ExpenseRecord) GroupKey(field string) string {
	switch field {
	case "amount":
		if r.Amount == nil || *r.Amount == 0 {
			return KeyOther
		}
		return strconv.FormatFloat(*r.Amount, 'f', -1, 64)
	case "currency":
		return strOr(r.Currency, KeyOther)
	case "category":
		return strOr(r.Category, KeyOther)
	case "description":
		return strOr(r.Description, KeyOther)
	case "date":
		return strOr(r.Date, KeyOther)
	case "payment_method":
		return strOr(r.PaymentMethod, KeyOther)
	default:
		v, ok := r.Extra[field]
		if !ok || v == nil {
			return KeyOther
		}
		s := fmt.Sprint(v)
		if s == "" {
			return KeyOther
		}
		return s
	}
}

// Fields returns every present key with its value, typed fields under
// their JSON names. The map is freshly allocated on each call.
func (r *ExpenseRecord) Fields() map[string]any {
	m := make(map[string]any, 6+len(r.Extra))
	if r.Amount != nil {
		m["amount"] = *r.Amount
	}
	for _, f := range []struct {
		key string
		val *string
	}{
		{"currency", r.Currency},
		{"category", r.Category},
		{"description", r.Description},
		{"date", r.Date},
		{"payment_method", r.PaymentMethod},
	} {
		if f.val != nil {
			m[f.key] = *f.val
		}
	}
	for k, v := range r.Extra {
		m[k] = v
	}
	return m
}

// StringOr returns *p unless p is nil or empty, in which case it
// returns fallback.
func StringOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func strOr(p *string, fallback string) string {
	return StringOr(p, fallback)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// FlexFloat unmarshals from a JSON number or a numeric string, which
// language models use interchangeably.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = FlexFloat(n)
			return nil
		}
	}
	return fmt.Errorf("not a number: %s", data)
}

func parseAmount(raw json.RawMessage) (float64, error) {
	var f FlexFloat
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("field \"amount\": %w", err)
	}
	return float64(f), nil
}

func parseString(raw json.RawMessage, key string, dst **string) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	*dst = &s
	return nil
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
