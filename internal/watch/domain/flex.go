package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexNumber handles JSON values that can be either string or number. The
// text-generation service inconsistently returns numeric fields ("85" vs 85),
// so numeric schema fields decode through this type.
type FlexNumber float64

func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	// Try as number first
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexNumber(num)
		return nil
	}
	// Try as string
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "" {
			*f = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(str, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexNumber(parsed)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexNumber", string(data))
}

// Float64 returns the underlying value.
func (f FlexNumber) Float64() float64 {
	return float64(f)
}
