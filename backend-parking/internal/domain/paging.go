package domain

import "time"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page selects a zero-based page of a listing
type Page struct {
	Number int
	Size   int
}

// NewPage clamps the page number and size into the accepted range
func NewPage(number, size int) Page {
	if number < 0 {
		number = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return p.Number * p.Size
}

// Bounds returns the slice bounds of this page over total items
func (p Page) Bounds(total int) (int, int) {
	start := min(p.Offset(), total)
	end := min(start+p.Size, total)
	return start, end
}

// DateRange is an inclusive time interval
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate rejects ranges whose start is after their end
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || r.Start.After(r.End) {
		return ErrInvalidDateRange
	}
	return nil
}

// Contains reports whether t falls inside the range, both ends inclusive
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// PageResult is one page of a listing together with the total item count
type PageResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
