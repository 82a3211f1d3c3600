package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Submission is the typed view of a stored result file. Unknown fields are
// ignored; the file itself keeps them.
type Submission struct {
	UserID    FlexString   `json:"userId"`
	Timestamp FlexString   `json:"timestamp"`
	Results   []Evaluation `json:"results"`
}

// Evaluation is one product judged by a tester. Older pages sent a single
// Selection ("none" or a version key); newer ones send Selections and IsNone.
type Evaluation struct {
	ProductID   FlexString   `json:"productId"`
	ProductName FlexString   `json:"productName"`
	Order       []FlexString `json:"order"`
	Selections  []FlexString `json:"selections"`
	IsNone      bool         `json:"isNone"`
	Selection   FlexString   `json:"selection"`
}

// Choices returns the selected version keys and whether the tester rejected
// every version, falling back to the single-choice format.
func (e Evaluation) Choices() ([]string, bool) {
	sel := Strings(e.Selections)
	if len(sel) > 0 || e.IsNone {
		return sel, e.IsNone
	}
	switch s := string(e.Selection); s {
	case "":
		return nil, false
	case VersionNone:
		return nil, true
	default:
		return []string{s}, false
	}
}

// DecodeSubmission converts a raw decoded result file into a Submission.
func DecodeSubmission(raw map[string]any) (Submission, error) {
	var sub Submission
	data, err := json.Marshal(raw)
	if err != nil {
		return sub, err
	}
	if err := json.Unmarshal(data, &sub); err != nil {
		return sub, fmt.Errorf("decode submission: %w", err)
	}
	return sub, nil
}

// FlexString accepts a JSON string, number, bool or null. Testers' pages
// have sent ids both as strings and as numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = ""
	case string:
		*f = FlexString(t)
	case float64:
		*f = FlexString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*f = FlexString(strconv.FormatBool(t))
	default:
		return fmt.Errorf("expected a scalar, got %s", b)
	}
	return nil
}

func Strings(fs []FlexString) []string {
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
