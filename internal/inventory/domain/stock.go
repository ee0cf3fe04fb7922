package domain

import "sort"

// Demand asks for Quantity units of one product.
type Demand struct {
	ProductID string
	Quantity  int64
}

// Reservation lists what was taken from stock, in lock order.
type Reservation struct {
	Lines []Demand
}

func (r Reservation) Units() int64 {
	var n int64
	for _, l := range r.Lines {
		n += l.Quantity
	}
	return n
}

// StockState is a product row as seen when explaining a failed reservation.
type StockState struct {
	ProductID string
	Exists    bool
	Eligible  bool
	Stock     int64
}

// Merge sums demands for the same product and orders them by product id.
// The ordering is the lock order for conditional decrements, which keeps two
// multi-product reservations from deadlocking each other.
func Merge(demands []Demand) []Demand {
	idx := make(map[string]int, len(demands))
	out := make([]Demand, 0, len(demands))
	for _, d := range demands {
		if i, ok := idx[d.ProductID]; ok {
			out[i].Quantity += d.Quantity
			continue
		}
		idx[d.ProductID] = len(out)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
