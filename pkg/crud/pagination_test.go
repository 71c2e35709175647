package crud

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLastPage(t *testing.T) {
	tests := []struct {
		total, perPage, want int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{21, 10, 3},
		{3, 2, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := LastPage(tt.total, tt.perPage); got != tt.want {
			t.Errorf("LastPage(%d, %d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name                  string
		page, perPage         int64
		wantPage, wantPerPage int64
	}{
		{"defaults", 0, 0, 1, DefaultPerPage},
		{"negative", -3, -1, 1, DefaultPerPage},
		{"capped", 2, 1000, 2, MaxPerPage},
		{"untouched", 4, 15, 4, 15},
		{"huge page", math.MaxInt64, 20, math.MaxInt64 / 20, 20},
		{"huge page default size", math.MaxInt64, 0, math.MaxInt64 / DefaultPerPage, DefaultPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage := NormalizePage(tt.page, tt.perPage)
			if page != tt.wantPage || perPage != tt.wantPerPage {
				t.Errorf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)",
					tt.page, tt.perPage, page, perPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := Offset(1, 20); got != 0 {
		t.Errorf("Offset(1, 20) = %d", got)
	}
	if got := Offset(3, 20); got != 40 {
		t.Errorf("Offset(3, 20) = %d", got)
	}
	if got := Offset(math.MaxInt64, 20); got != math.MaxInt64 {
		t.Errorf("Offset(MaxInt64, 20) = %d, want saturation", got)
	}
}

// Property: a normalized page never produces a negative offset.
func TestProperty_NormalizedOffsetNonNegative(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("offset of a normalized page is non-negative", prop.ForAll(
		func(page, perPage int64) bool {
			page, perPage = NormalizePage(page, perPage)
			return Offset(page, perPage) >= 0
		},
		gen.Int64(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// Property: the last page holds the last record and no page after it does.
func TestProperty_LastPageBoundsTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("last page covers total exactly", prop.ForAll(
		func(total, perPage int64) bool {
			last := LastPage(total, perPage)
			if total == 0 {
				return last == 0
			}
			return last*perPage >= total && (last-1)*perPage < total
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(1, MaxPerPage),
	))

	properties.TestingRun(t)
}
