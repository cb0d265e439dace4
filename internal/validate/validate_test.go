package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `json:"name" validate:"required,max=5"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	Kind     string `json:"kind" validate:"omitempty,oneof=a b"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name   string
		in     sample
		fields map[string]string
	}{
		{
			name:   "valid",
			in:     sample{Name: "milk", Quantity: 1},
			fields: map[string]string{},
		},
		{
			name: "missing name and zero quantity",
			in:   sample{},
			fields: map[string]string{
				"name":     "is required",
				"quantity": "must be greater than or equal to 1",
			},
		},
		{
			name:   "too long",
			in:     sample{Name: "abcdefg", Quantity: 2},
			fields: map[string]string{"name": "must be at most 5"},
		},
		{
			name:   "bad enum",
			in:     sample{Name: "x", Quantity: 1, Kind: "c"},
			fields: map[string]string{"kind": "must be one of [a b]"},
		},
		{
			name:   "bad date",
			in:     sample{Name: "x", Quantity: 1, Date: "2024/01/01"},
			fields: map[string]string{"date": "must be a date in the form 2006-01-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.fields, Fields(err))
		})
	}
}

func TestReason(t *testing.T) {
	err := Struct(sample{})
	assert.Equal(t, "name is required; quantity must be greater than or equal to 1", Reason(err))

	assert.Equal(t, "boom", Reason(errors.New("boom")))
	assert.Empty(t, Reason(nil))
}
