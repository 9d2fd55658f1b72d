package erp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Credentials identify the ERP user on whose behalf a call is made.
type Credentials struct {
	UID      int
	Password string
}

// Many2One is a relational field encoded by the ERP as [id, "display name"]
// or false when unset.
type Many2One struct {
	ID   int
	Name string
}

func (m Many2One) Valid() bool { return m.ID > 0 }

func (m *Many2One) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*m = Many2One{}
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("many2one: %w", err)
	}
	if len(pair) == 0 {
		*m = Many2One{}
		return nil
	}
	var out Many2One
	if err := json.Unmarshal(pair[0], &out.ID); err != nil {
		return fmt.Errorf("many2one id: %w", err)
	}
	if len(pair) > 1 {
		if err := json.Unmarshal(pair[1], &out.Name); err != nil {
			return fmt.Errorf("many2one name: %w", err)
		}
	}
	*m = out
	return nil
}

func (m Many2One) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("false"), nil
	}
	return json.Marshal([]any{m.ID, m.Name})
}

// Text is a char/text/date field. The ERP sends false for empty values; Text
// decodes that as "" and encodes "" back as null.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	*t = Text(s)
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if t == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t Text) String() string { return string(t) }

// Float is a numeric field that may arrive as false.
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*f = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("float: %w", err)
	}
	*f = Float(v)
	return nil
}

func isFalsy(data []byte) bool {
	d := bytes.TrimSpace(data)
	return bytes.Equal(d, []byte("false")) || bytes.Equal(d, []byte("null"))
}

// Truthy applies the ERP's loose boolean semantics to a raw result.
func Truthy(raw json.RawMessage) bool {
	d := bytes.TrimSpace(raw)
	switch {
	case len(d) == 0:
		return false
	case bytes.Equal(d, []byte("false")), bytes.Equal(d, []byte("null")),
		bytes.Equal(d, []byte("0")), bytes.Equal(d, []byte(`""`)),
		bytes.Equal(d, []byte("[]")):
		return false
	}
	return true
}
