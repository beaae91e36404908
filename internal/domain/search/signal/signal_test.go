package signal

import "testing"

func TestKind_IsValid(t *testing.T) {
	tests := []struct {
		k    Kind
		want bool
	}{
		{Semantic, true},
		{Lexical, true},
		{"", false},
		{"geo", false},
	}
	for _, tc := range tests {
		if got := tc.k.IsValid(); got != tc.want {
			t.Errorf("Kind(%q).IsValid() = %v, want %v", tc.k, got, tc.want)
		}
	}
}
