package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString принимает из JSON и строку, и число: "123" и 123 дают одно значение.
// Storefront forms and the commerce API disagree on whether ids and amounts are quoted.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		// bool/object: keep the raw text so nothing downstream panics
		*f = FlexString(string(b))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Empty mirrors the storefront's notion of "missing": blank or a literal zero.
func (f FlexString) Empty() bool {
	s := strings.TrimSpace(string(f))
	return s == "" || s == "0"
}
