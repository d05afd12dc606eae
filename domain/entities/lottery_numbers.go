package entities

import (
	"sort"
	"strconv"
	"strings"
)

// NumberFormat describes how many distinct values a number set holds and their inclusive range
type NumberFormat struct {
	Count int
	Min   int
	Max   int
}

// LotteryNumbers is a validated, sorted set of distinct lottery numbers
type LotteryNumbers struct {
	values []int
}

// NewLotteryNumbers validates values against the format and returns them in canonical order
func NewLotteryNumbers(values []int, format NumberFormat) (LotteryNumbers, error) {
	if len(values) != format.Count {
		return LotteryNumbers{}, ErrLotteryNumbersCountInvalid.WithMessage("expected %d numbers, got %d", format.Count, len(values))
	}

	seen := make(map[int]struct{}, len(values))
	sorted := make([]int, 0, len(values))
	for _, v := range values {
		if v < format.Min || v > format.Max {
			return LotteryNumbers{}, ErrLotteryNumbersOutOfRange.WithMessage("%d is outside %d-%d", v, format.Min, format.Max)
		}
		if _, dup := seen[v]; dup {
			return LotteryNumbers{}, ErrLotteryNumbersDuplicate.WithMessage("%d appears more than once", v)
		}
		seen[v] = struct{}{}
		sorted = append(sorted, v)
	}
	sort.Ints(sorted)

	return LotteryNumbers{values: sorted}, nil
}

// ParseLotteryNumbers parses a comma or whitespace separated list of numbers
func ParseLotteryNumbers(raw string, format NumberFormat) (LotteryNumbers, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) == 0 {
		return LotteryNumbers{}, ErrLotteryNumbersFormatInvalid.WithMessage("no numbers in %q", raw)
	}

	values := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return LotteryNumbers{}, ErrLotteryNumbersFormatInvalid.WithMessage("%q is not a number", f)
		}
		values = append(values, v)
	}

	return NewLotteryNumbers(values, format)
}

// Values returns a copy of the sorted numbers
func (n LotteryNumbers) Values() []int {
	out := make([]int, len(n.values))
	copy(out, n.values)
	return out
}

// Len returns the number of values in the set
func (n LotteryNumbers) Len() int {
	return len(n.values)
}

// IsZero reports whether the set was never initialised
func (n LotteryNumbers) IsZero() bool {
	return len(n.values) == 0
}

// String returns the canonical storage form, e.g. "3,7,12,25,39"
func (n LotteryNumbers) String() string {
	parts := make([]string, len(n.values))
	for i, v := range n.values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// CountMatches returns how many values of n also appear in other
func (n LotteryNumbers) CountMatches(other LotteryNumbers) int {
	set := make(map[int]struct{}, len(other.values))
	for _, v := range other.values {
		set[v] = struct{}{}
	}
	matches := 0
	for _, v := range n.values {
		if _, ok := set[v]; ok {
			matches++
		}
	}
	return matches
}

// ContainsAll reports whether every value of subset appears in n
func (n LotteryNumbers) ContainsAll(subset LotteryNumbers) bool {
	return subset.CountMatches(n) == subset.Len()
}
