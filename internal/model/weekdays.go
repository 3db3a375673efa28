package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"
)

// Weekdays is stored as a postgres integer[] column.
type Weekdays []int

func (w Weekdays) Value() (driver.Value, error) {
	arr := make(pq.Int64Array, len(w))
	for i, d := range w {
		arr[i] = int64(d)
	}
	return arr.Value()
}

func (w *Weekdays) Scan(src interface{}) error {
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("failed to scan weekdays: %w", err)
	}
	out := make(Weekdays, len(arr))
	for i, d := range arr {
		out[i] = int(d)
	}
	*w = out
	return nil
}
