package domain

import "testing"

func TestCoerce(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"WORK", CategoryWork},
		{"SPAM", CategorySpam},
		{"UNKNOWN", CategoryUnknown},
		{"BANANA", CategoryUnknown},
		{"work", CategoryUnknown},
		{"", CategoryUnknown},
		{"UNCATEGORIZED", CategoryUnknown},
	}

	for _, tt := range tests {
		if got := Coerce(tt.input); got != tt.want {
			t.Errorf("Coerce(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	for _, c := range Categories {
		if !c.IsValid() {
			t.Errorf("%v should be valid", c)
		}
	}
	if CategoryUncategorized.IsValid() {
		t.Error("UNCATEGORIZED is not a classifier label")
	}
}
