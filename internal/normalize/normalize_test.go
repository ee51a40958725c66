package normalize

import (
	"testing"
	"time"

	"contract-ledger-service/internal/models"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"plain integer", "1500", "1500", true},
		{"regular space thousands", "1 500 000", "1500000", true},
		{"non-breaking space thousands", "1 500 000", "1500000", true},
		{"thin space thousands", "1 500 000", "1500000", true},
		{"narrow no-break space", "1 500 000", "1500000", true},
		{"decimal comma", "1234,56", "1234.56", true},
		{"space thousands with comma decimal", "1 234,56", "1234.56", true},
		{"comma thousands with dot decimal", "1,234.56", "1234.56", true},
		{"multiple commas are thousands", "1,234,567", "1234567", true},
		{"hyphen is zero", "-", "0", true},
		{"en-dash is zero", "–", "0", true},
		{"em-dash is zero", "—", "0", true},
		{"empty is zero", "", "0", true},
		{"n/a is zero", "N/A", "0", true},
		{"negative clamps to zero with warning", "-150", "0", false},
		{"currency suffix stripped with warning", "1500 сўм", "1500", false},
		{"garbage only", "abc", "0", false},
		{"second dot dropped", "1.2.3", "1.23", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
			if ok != tt.wantOK {
				t.Errorf("ParseAmount(%q) ok = %t, want %t", tt.input, ok, tt.wantOK)
			}
		})
	}
}

func TestParseAmount_NeverNegative(t *testing.T) {
	inputs := []string{"-150", "-1 500,25", "—", "-0.01"}
	for _, input := range inputs {
		got, _ := ParseAmount(input)
		if got.IsNegative() {
			t.Errorf("ParseAmount(%q) = %s, must never be negative", input, got)
		}
	}
}

func TestParseAmount_SpaceVariantsAgree(t *testing.T) {
	variants := []string{"1 234,56", "1 234,56", "1 234,56", "1 234,56"}
	want, _ := ParseAmount(variants[0])
	for _, v := range variants[1:] {
		got, _ := ParseAmount(v)
		if !got.Equal(want) {
			t.Errorf("ParseAmount(%q) = %s, want %s regardless of space variant", v, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     time.Time
		wantSeen bool
	}{
		{"dotted format", "15.03.2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"iso format", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"sentinel is absent", "00.01.1900", time.Time{}, false},
		{"empty is absent", "", time.Time{}, false},
		{"whitespace is absent", "   ", time.Time{}, false},
		{"impossible calendar date", "31.02.2024", time.Time{}, false},
		{"wrong format", "03/15/2024", time.Time{}, false},
		{"garbage", "yesterday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, seen := ParseDate(tt.input)
			if seen != tt.wantSeen {
				t.Errorf("ParseDate(%q) present = %t, want %t", tt.input, seen, tt.wantSeen)
			}
			if tt.wantSeen && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got, tt.want)
			}
			if !tt.wantSeen && !got.IsZero() {
				t.Errorf("ParseDate(%q) should be the zero time", tt.input)
			}
		})
	}
}

func TestCleanIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"digits pass through", "200123456", "200123456"},
		{"separators stripped", "200-123-456", "200123456"},
		{"letters stripped", "ИНН 200123456", "200123456"},
		{"empty stays absent", "", ""},
		{"only letters become absent", "нет", ""},
		{"zero identifier is kept", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanIdentifier(tt.input); got != tt.want {
				t.Errorf("CleanIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       models.ContractStatus
		wantReview bool
	}{
		{"active family", "Амал қилувчи", models.StatusActive, false},
		{"active family lowercase", "амал қилувчи", models.StatusActive, false},
		{"cancelled family", "Бекор қилинган", models.StatusCancelled, false},
		{"completed family", "Якунланган", models.StatusCompleted, false},
		{"english active", "Active", models.StatusActive, false},
		{"english completed", "Completed", models.StatusCompleted, false},
		{"empty defaults to active flagged", "", models.StatusActive, true},
		{"garbage defaults to active flagged", "???", models.StatusActive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, review := ParseStatus(tt.input)
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %s, want %s", tt.input, got, tt.want)
			}
			if review != tt.wantReview {
				t.Errorf("ParseStatus(%q) needsReview = %t, want %t", tt.input, review, tt.wantReview)
			}
		})
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"25%", "25"},
		{"12,5 %", "12.5"},
		{"", "0"},
		{"-", "0"},
	}

	for _, tt := range tests {
		got := ParsePercent(tt.input)
		want, _ := decimal.NewFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("ParsePercent(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
