package location

import (
	"encoding/json"
	"strconv"
)

// Index is a 1-based position that may be absent.
// The zero value is absent.
type Index struct {
	n int
}

// At returns an Index holding n, or an absent Index when n is not positive.
func At(n int) Index {
	if n <= 0 {
		return Index{}
	}
	return Index{n: n}
}

// Get returns the position and whether it is present.
func (i Index) Get() (int, bool) {
	return i.n, i.n > 0
}

// IsSet reports whether the position is present.
func (i Index) IsSet() bool {
	return i.n > 0
}

// IsZero reports whether the position is absent.
func (i Index) IsZero() bool {
	return i.n <= 0
}

// Or returns the position, or def when it is absent.
func (i Index) Or(def int) int {
	if i.n > 0 {
		return i.n
	}
	return def
}

// String returns the decimal position, or "" when absent.
func (i Index) String() string {
	if i.n <= 0 {
		return ""
	}
	return strconv.Itoa(i.n)
}

// MarshalJSON encodes a present position as a number and an absent one as null.
func (i Index) MarshalJSON() ([]byte, error) {
	if i.n <= 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(i.n)), nil
}

// UnmarshalJSON accepts a number or null.
func (i *Index) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Index{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*i = At(n)
	return nil
}
