package checksum

import "testing"

func TestSumStable(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	if a != b || len(a) != 64 {
		t.Errorf("Sum = %q / %q", a, b)
	}
	if Sum([]byte("hello!")) == a {
		t.Error("different input should change the digest")
	}
}

func TestMatchesETag(t *testing.T) {
	sum := Sum([]byte("x"))
	cases := []struct {
		header string
		want   bool
	}{
		{ETag(sum), true},
		{`W/` + ETag(sum), true},
		{`"other", ` + ETag(sum), true},
		{"*", true},
		{`"other"`, false},
		{"", false},
	}
	for _, tc := range cases {
		if got := MatchesETag(tc.header, sum); got != tc.want {
			t.Errorf("MatchesETag(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}
