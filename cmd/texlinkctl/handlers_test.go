package main

import "testing"

func TestEvalExpr(t *testing.T) {
	cases := []struct {
		expr string
		want int
	}{
		{"42", 42},
		{" 42 ", 42},
		{"21*2", 42},
		{"40+2", 42},
		{"50-8", 42},
		{"84/2", 42},
		{"6 * 7", 42},
		{"-5", -5},
		{"-5+47", 42},
	}
	for _, tc := range cases {
		got, err := evalExpr(tc.expr)
		if err != nil {
			t.Fatalf("evalExpr(%q): %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("evalExpr(%q): expected %d, got %d", tc.expr, tc.want, got)
		}
	}
}

func TestEvalExprErrors(t *testing.T) {
	for _, expr := range []string{"", "forty-two", "1/0", "2*banana"} {
		if _, err := evalExpr(expr); err == nil {
			t.Fatalf("evalExpr(%q): expected an error", expr)
		}
	}
}
