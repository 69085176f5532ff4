package models

import (
	"bytes"
	"encoding/json"
)

// AnomalyRecord is an expense flagged by anomaly detection: the record
// itself plus its z-score and whether it sits above or below the mean.
type AnomalyRecord struct {
	Expense   ExpenseRecord
	ZScore    float64
	Deviation string
}

// MarshalJSON flattens the expense fields and the anomaly fields into a
// single object.
func (a AnomalyRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(a.Expense)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	if len(base) > 2 {
		buf.WriteByte(',')
	}
	zb, err := json.Marshal(a.ZScore)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"z_score":`)
	buf.Write(zb)
	db, err := json.Marshal(a.Deviation)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"deviation":`)
	buf.Write(db)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
