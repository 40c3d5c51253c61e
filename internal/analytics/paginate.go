package analytics

import (
	"sort"
	"strings"
)

// Table column identifiers shared by the sort engine and the HTTP layer.
const (
	ColumnPair        = "pairKey"
	ColumnBaseCoin    = "baseCoin"
	ColumnTargetCoin  = "targetCoin"
	ColumnBasePrice   = "basePrice"
	ColumnTargetPrice = "targetPrice"
	ColumnDeviation   = "deviationPercent"
	ColumnTimestamp   = "timestamp"
)

// CellValue is one sortable cell. Null cells sort after everything else
// regardless of direction.
type CellValue struct {
	Str     string
	Num     float64
	Numeric bool
	Null    bool
}

// Columns adapts a record type to the pagination engine: a coin filter
// predicate and a column accessor. Unknown columns should return a null cell.
type Columns[T any] struct {
	Matches func(item T, coin string) bool
	Cell    func(item T, column string) CellValue
}

// Page is one slice of the (possibly filtered and sorted) record set together
// with totals for the pager widget.
type Page[T any] struct {
	Items      []T
	TotalItems int
	TotalPages int
}

// Paginate produces the requested page. When meta is non-nil the backend
// already paginated the fetch: the delivered slice is trusted verbatim and
// only the totals are computed. Otherwise the engine filters, sorts, and
// slices client-side.
//
// Requests beyond TotalPages are not clamped here; callers clamp before
// calling, so an out-of-range page yields an empty Items slice.
func Paginate[T any](items []T, req PageRequest, meta *ServerMeta, cols Columns[T]) Page[T] {
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageRequest(0).PageSize
	}

	if meta != nil {
		return Page[T]{
			Items:      items,
			TotalItems: meta.TotalCount,
			TotalPages: totalPages(meta.TotalCount, req.PageSize),
		}
	}

	filtered := items
	if req.FilterCoin != "" && cols.Matches != nil {
		filtered = make([]T, 0, len(items))
		for _, item := range items {
			if cols.Matches(item, req.FilterCoin) {
				filtered = append(filtered, item)
			}
		}
	}

	if req.SortColumn != "" && cols.Cell != nil {
		// Copy before sorting: the normalized set is never reordered in place.
		sorted := make([]T, len(filtered))
		copy(sorted, filtered)
		sort.SliceStable(sorted, func(i, j int) bool {
			return cellLess(cols.Cell(sorted[i], req.SortColumn), cols.Cell(sorted[j], req.SortColumn), req.SortDirection)
		})
		filtered = sorted
	}

	total := len(filtered)
	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	if start < 0 || start >= total {
		return Page[T]{Items: []T{}, TotalItems: total, TotalPages: totalPages(total, req.PageSize)}
	}
	if end > total {
		end = total
	}

	return Page[T]{
		Items:      filtered[start:end],
		TotalItems: total,
		TotalPages: totalPages(total, req.PageSize),
	}
}

func totalPages(totalItems, pageSize int) int {
	pages := (totalItems + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// cellLess orders two cells for the requested direction. Nulls always lose.
func cellLess(a, b CellValue, dir SortDirection) bool {
	if a.Null || b.Null {
		return !a.Null && b.Null
	}

	var cmp int
	if a.Numeric && b.Numeric {
		switch {
		case a.Num < b.Num:
			cmp = -1
		case a.Num > b.Num:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(strings.ToLower(a.Str), strings.ToLower(b.Str))
	}

	if dir == SortDesc {
		return cmp > 0
	}
	return cmp < 0
}

// DeviationColumns adapts DeviationRecord to the engine.
func DeviationColumns() Columns[DeviationRecord] {
	return Columns[DeviationRecord]{
		Matches: func(r DeviationRecord, coin string) bool {
			return r.BaseCoin == coin
		},
		Cell: func(r DeviationRecord, column string) CellValue {
			switch column {
			case ColumnPair:
				return CellValue{Str: r.PairKey}
			case ColumnBaseCoin:
				return CellValue{Str: r.BaseCoin}
			case ColumnTargetCoin:
				return CellValue{Str: r.TargetCoin}
			case ColumnBasePrice:
				return CellValue{Num: r.BasePrice, Numeric: true}
			case ColumnTargetPrice:
				return CellValue{Num: r.TargetPrice, Numeric: true}
			case ColumnDeviation:
				return CellValue{Num: r.DeviationPercent, Numeric: true}
			default:
				return CellValue{Null: true}
			}
		},
	}
}

// TimeSeriesColumns adapts TimeSeriesPoint to the engine. The coin filter
// matches the base side of the pair key.
func TimeSeriesColumns() Columns[TimeSeriesPoint] {
	return Columns[TimeSeriesPoint]{
		Matches: func(p TimeSeriesPoint, coin string) bool {
			return strings.HasPrefix(p.PairKey, coin+"/")
		},
		Cell: func(p TimeSeriesPoint, column string) CellValue {
			switch column {
			case ColumnPair:
				return CellValue{Str: p.PairKey}
			case ColumnTimestamp:
				return CellValue{Str: p.Timestamp}
			case ColumnBasePrice:
				return CellValue{Num: p.BasePrice, Numeric: true}
			case ColumnTargetPrice:
				return CellValue{Num: p.TargetPrice, Numeric: true}
			case ColumnDeviation:
				return CellValue{Num: p.DeviationPercent, Numeric: true}
			default:
				return CellValue{Null: true}
			}
		},
	}
}
