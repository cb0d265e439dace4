package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

// UnmarshalJSON accepts categoryId and quantity as JSON numbers or as
// numeric strings such as "3".
func (b *BatchItem) UnmarshalJSON(data []byte) error {
	type plain BatchItem
	var v struct {
		plain
		CategoryID json.RawMessage `json:"categoryId"`
		Quantity   json.RawMessage `json:"quantity"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	id, err := wholeNumber(v.CategoryID, "categoryId")
	if err != nil {
		return err
	}
	qty, err := wholeNumber(v.Quantity, "quantity")
	if err != nil {
		return err
	}
	if qty > math.MaxInt32 || qty < math.MinInt32 {
		return errors.New("quantity is out of range")
	}
	*b = BatchItem(v.plain)
	b.CategoryID = id
	b.Quantity = int(qty)
	return nil
}

func wholeNumber(raw json.RawMessage, field string) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%s must be a whole number", field)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	return n, nil
}

// DecodeBatch reads a batch body: either a JSON array of items or an object
// with an "items" array. Each element is decoded on its own; an element that
// cannot be read becomes a Failure at its index instead of failing the body.
func DecodeBatch(body []byte) ([]Resolved, []Failure, error) {
	body = bytes.TrimSpace(body)
	var elems []json.RawMessage
	switch {
	case len(body) > 0 && body[0] == '[':
		if err := json.Unmarshal(body, &elems); err != nil {
			return nil, nil, fmt.Errorf("%w: batch is not valid JSON", domain.ErrInvalidInput)
		}
	case len(body) > 0 && body[0] == '{':
		var envelope struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, nil, fmt.Errorf("%w: batch is not valid JSON", domain.ErrInvalidInput)
		}
		elems = envelope.Items
	default:
		return nil, nil, fmt.Errorf("%w: batch must be an array of items", domain.ErrInvalidInput)
	}

	var (
		resolved []Resolved
		failures []Failure
	)
	for i, el := range elems {
		var item BatchItem
		if err := json.Unmarshal(el, &item); err != nil {
			failures = append(failures, Failure{Index: i, Name: itemName(el), Reason: decodeReason(err)})
			continue
		}
		resolved = append(resolved, Resolved{Index: i, Item: item})
	}
	return resolved, failures, nil
}

// itemName recovers the name of an element that did not decode, if it has one.
func itemName(el json.RawMessage) string {
	var v struct {
		Name json.RawMessage `json:"name"`
	}
	var name string
	if json.Unmarshal(el, &v) == nil && json.Unmarshal(v.Name, &name) == nil {
		return strings.TrimSpace(name)
	}
	return ""
}

func decodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return "item must be an object"
		}
		return typeErr.Field + " has the wrong type"
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "item is not valid JSON"
	}
	return err.Error()
}
