package workflow

import (
	"math"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterMap(filters []*ec2.Filter) map[string][]string {
	m := map[string][]string{}
	for _, f := range filters {
		m[aws.StringValue(f.Name)] = aws.StringValueSlice(f.Values)
	}
	return m
}

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   map[string][]string
	}{
		{
			name:   "no parameters",
			params: Params{},
			want:   map[string][]string{"status": {"in-use"}},
		},
		{
			name:   "instance only",
			params: Params{InstanceID: "i-1"},
			want: map[string][]string{
				"status":                 {"in-use"},
				"attachment.instance-id": {"i-1"},
			},
		},
		{
			name:   "volume only",
			params: Params{VolumeID: "vol-1"},
			want: map[string][]string{
				"status":    {"in-use"},
				"volume-id": {"vol-1"},
			},
		},
		{
			name:   "instance and volume",
			params: Params{InstanceID: "i-1", VolumeID: "vol-1"},
			want: map[string][]string{
				"status":                 {"in-use"},
				"attachment.instance-id": {"i-1"},
				"volume-id":              {"vol-1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters := BuildFilters(tt.params)
			assert.Len(t, filters, len(tt.want))
			assert.Equal(t, tt.want, filterMap(filters))
		})
	}
}

func TestParseIncrement(t *testing.T) {
	inc, err := ParseIncrement("", DefaultIncrement)
	require.NoError(t, err)
	assert.Equal(t, 10, inc)

	inc, err = ParseIncrement(" 25 ", DefaultIncrement)
	require.NoError(t, err)
	assert.Equal(t, 25, inc)

	inc, err = ParseIncrement("0", DefaultIncrement)
	require.NoError(t, err)
	assert.Equal(t, 0, inc)

	// an unset default falls back to DefaultIncrement, an explicit 0 does not
	inc, err = ParseIncrement("", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultIncrement, inc)

	inc, err = ParseIncrement("0", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, inc)

	for _, raw := range []string{"abc", "1.5", "-5"} {
		_, err := ParseIncrement(raw, DefaultIncrement)
		require.Error(t, err, raw)
		assert.Equal(t, awserrors.ErrorInvalidParameterValue, awserrors.Code(err))
		assert.Equal(t, 400, awserrors.HTTPCode(err))
	}
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams(" i-1 ", "", "", 15)
	require.NoError(t, err)
	assert.Equal(t, Params{InstanceID: "i-1", Increment: 15}, params)

	params, err = ParseParams("", "vol-1", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultIncrement, params.Increment)

	_, err = ParseParams("i-1", "vol-1", "x", 10)
	require.Error(t, err)
}

func TestGrowSize(t *testing.T) {
	tests := []struct {
		size int64
		inc  int
		want int64
	}{
		{100, 10, 110},
		{100, 25, 125},
		{100, 20, 120},
		{8, 0, 8},
		{8, 10, 8}, // floor(8 * 1.1)
		{500, 10, 550},
		{16384, 100, 32768},
	}

	for _, tt := range tests {
		got, err := GrowSize(tt.size, tt.inc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "size=%d inc=%d", tt.size, tt.inc)
	}
}

func TestGrowSize_Overflow(t *testing.T) {
	inc, err := ParseIncrement("92233720368547758", DefaultIncrement)
	require.NoError(t, err)

	for _, tc := range []struct {
		size int64
		inc  int
	}{
		{100, inc},
		{100, math.MaxInt64},
		{100, math.MaxInt64 - 99},
		{math.MaxInt64 / 100, 10},
		{1, -1},
	} {
		_, err := GrowSize(tc.size, tc.inc)
		assert.Error(t, err, "size=%d inc=%d", tc.size, tc.inc)
	}

	// largest increment that still fits
	got, err := GrowSize(1, math.MaxInt64-100)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64/100), got)
}
