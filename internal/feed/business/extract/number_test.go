package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "12.50", want: 12.5},
		{in: "12,50", want: 12.5},
		{in: "1,234.56", want: 1234.56},
		{in: "1.234,56", want: 1234.56},
		{in: "1,234,567", want: 1234567},
		{in: "₪ 7.90", want: 7.9},
		{in: "7.90 NIS", want: 7.9},
		{in: "‏89.90‎", want: 89.9},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "free", wantErr: true},
		{in: "-4.20", wantErr: true},
	}

	for _, test := range cases {
		got, err := parsePrice(test.in)
		if test.wantErr {
			require.Error(t, err, "input %q", test.in)
			continue
		}
		require.NoError(t, err, "input %q", test.in)
		require.InDelta(t, test.want, got, 1e-9, "input %q", test.in)
	}
}

func TestCleanBarcode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "7290000066318", want: "7290000066318"},
		{in: " 729-1234567 ", want: "7291234567"},
		{in: "P-1234567", want: "1234567"},
		{in: "12345", want: ""},
		{in: "123456789012345678901", want: ""},
		{in: "no digits", want: ""},
	}

	for _, test := range cases {
		require.Equal(t, test.want, cleanBarcode(test.in), "input %q", test.in)
	}
}

func TestParseOptionalFloat(t *testing.T) {
	got := parseOptionalFloat("15,90")
	require.NotNil(t, got)
	require.InDelta(t, 15.9, *got, 1e-9)

	require.Nil(t, parseOptionalFloat(""))
	require.Nil(t, parseOptionalFloat("n/a"))
}
