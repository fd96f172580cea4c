package workflow

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/blockstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrower(svc blockstore.VolumeService) *Grower {
	return &Grower{Volumes: svc, Interval: time.Millisecond, Timeout: 200 * time.Millisecond}
}

func TestGrower_Grow(t *testing.T) {
	tests := []struct {
		name string
		inc  int
		want int64
	}{
		{"default increment", DefaultIncrement, 110},
		{"explicit increment", 25, 125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))

			res, err := newTestGrower(svc).Grow(context.Background(), "vol-1", tt.inc)
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, int64(100), res.OldSize)
			assert.Equal(t, tt.want, res.NewSize)
			assert.Equal(t, tt.want, aws.Int64Value(svc.Volumes[0].Size))
		})
	}
}

func TestGrower_Grow_WaitsForOptimizing(t *testing.T) {
	svc := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))
	svc.ModificationStates = []string{
		ec2.VolumeModificationStateModifying,
		ec2.VolumeModificationStateModifying,
		ec2.VolumeModificationStateOptimizing,
	}

	res, err := newTestGrower(svc).Grow(context.Background(), "vol-1", 10)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, svc.CallsTo("DescribeVolumesModifications"))
}

func TestGrower_Grow_SizeUnavailable(t *testing.T) {
	svc := blockstore.NewMockVolumeService()

	_, err := newTestGrower(svc).Grow(context.Background(), "vol-missing", 10)
	require.Error(t, err)
	assert.Equal(t, awserrors.ErrorVolumeSize, awserrors.Code(err))
	assert.Zero(t, svc.CallsTo("ModifyVolume"))
}

func TestGrower_Grow_ModifyRejected(t *testing.T) {
	svc := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))
	svc.Errors["ModifyVolume"] = errors.New("VolumeModificationRateExceeded")

	res, err := newTestGrower(svc).Grow(context.Background(), "vol-1", 10)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "VolumeModificationRateExceeded", res.Message)
}

func TestGrower_Grow_ModificationFailed(t *testing.T) {
	svc := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))
	svc.ModificationStates = []string{ec2.VolumeModificationStateFailed}

	res, err := newTestGrower(svc).Grow(context.Background(), "vol-1", 10)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Contains(t, res.Message, "failed")
}

func TestGrower_Grow_TimedOut(t *testing.T) {
	svc := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))
	svc.ModificationStates = []string{ec2.VolumeModificationStateModifying}

	g := &Grower{Volumes: svc, Interval: time.Millisecond, Timeout: 20 * time.Millisecond}
	res, err := g.Grow(context.Background(), "vol-1", 10)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
}

func TestGrower_Grow_IncrementOverflows(t *testing.T) {
	svc := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))

	res, err := newTestGrower(svc).Grow(context.Background(), "vol-1", math.MaxInt64)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, awserrors.ErrorInvalidParameterValue, awserrors.Code(err))
	assert.Zero(t, svc.CallsTo("ModifyVolume"))
	assert.Equal(t, int64(100), aws.Int64Value(svc.Volumes[0].Size))
}

// flakyModifications fails the first describe calls with err before
// delegating to the mock.
type flakyModifications struct {
	*blockstore.MockVolumeService
	failures int
	err      error
}

func (f *flakyModifications) DescribeVolumesModifications(ctx context.Context, input *ec2.DescribeVolumesModificationsInput) (*ec2.DescribeVolumesModificationsOutput, error) {
	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	return f.MockVolumeService.DescribeVolumesModifications(ctx, input)
}

func TestGrower_Grow_RetriesThrottledDescribe(t *testing.T) {
	mock := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))
	svc := &flakyModifications{
		MockVolumeService: mock,
		failures:          2,
		err:               awserr.New("RequestLimitExceeded", "Request limit exceeded.", nil),
	}

	res, err := newTestGrower(svc).Grow(context.Background(), "vol-1", 10)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(110), res.NewSize)
	assert.Equal(t, 1, mock.CallsTo("DescribeVolumesModifications"))
}

func TestGrower_Grow_DescribeErrorStopsPolling(t *testing.T) {
	mock := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))
	svc := &flakyModifications{
		MockVolumeService: mock,
		failures:          1,
		err:               awserr.New("UnauthorizedOperation", "not allowed", nil),
	}

	res, err := newTestGrower(svc).Grow(context.Background(), "vol-1", 10)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Contains(t, res.Message, "UnauthorizedOperation")
	assert.Zero(t, mock.CallsTo("DescribeVolumesModifications"))
}

func TestGrower_Grow_ThrottledUntilTimeout(t *testing.T) {
	mock := blockstore.NewMockVolumeService(testVolume("vol-1", "i-1", 100, nil))
	svc := &flakyModifications{
		MockVolumeService: mock,
		failures:          math.MaxInt,
		err:               awserr.New("Throttling", "Rate exceeded", nil),
	}

	g := &Grower{Volumes: svc, Interval: time.Millisecond, Timeout: 20 * time.Millisecond}
	res, err := g.Grow(context.Background(), "vol-1", 10)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
}
