package nlu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finansmanager/internal/domain"
)

// ErrNotObject is returned when the reply is valid JSON but not an object.
var ErrNotObject = errors.New("reply is not a JSON object")

// ParseDocument extracts the JSON object from a raw model reply. The returned
// document is compacted but otherwise verbatim. Failures are *domain.ModelParseError.
func ParseDocument(raw string) (json.RawMessage, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, &domain.ModelParseError{Raw: raw, Err: errors.New("empty reply")}
	}
	if !json.Valid([]byte(clean)) {
		var v interface{}
		err := json.Unmarshal([]byte(clean), &v)
		return nil, &domain.ModelParseError{Raw: raw, Err: fmt.Errorf("ParseDocument: unmarshal JSON: %w", err)}
	}
	if clean[0] != '{' {
		return nil, &domain.ModelParseError{Raw: raw, Err: ErrNotObject}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(clean)); err != nil {
		return nil, &domain.ModelParseError{Raw: raw, Err: fmt.Errorf("ParseDocument: compact JSON: %w", err)}
	}
	return json.RawMessage(buf.Bytes()), nil
}

// Decode maps a parsed document onto the NLU result shape.
func Decode(doc json.RawMessage) (*domain.NLUResult, error) {
	var res domain.NLUResult
	if err := json.Unmarshal(doc, &res); err != nil {
		return nil, fmt.Errorf("Decode: unmarshal NLU result: %w", err)
	}
	res.Intent = domain.Intent(strings.ToUpper(strings.TrimSpace(string(res.Intent))))
	return &res, nil
}

// Parse is ParseDocument followed by Decode.
func Parse(raw string) (*domain.NLUResult, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	res, err := Decode(doc)
	if err != nil {
		return nil, &domain.ModelParseError{Raw: raw, Err: err}
	}
	return res, nil
}

// cleanModelJSON strips Markdown fences and surrounding prose the model may
// add despite the instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = strings.TrimSpace(s[idx+1:])
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	if json.Valid([]byte(s)) {
		return s
	}

	// Keep only the outermost object when prose surrounds it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
