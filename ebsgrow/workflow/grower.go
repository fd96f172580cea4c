package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/blockstore"
	"github.com/mulgadc/ebsgrow/ebsgrow/poll"
)

// GrowSize returns floor(size * (1 + increment/100)). It fails when the
// grown size does not fit in an int64.
func GrowSize(size int64, increment int) (int64, error) {
	inc := int64(increment)
	if size < 0 || inc < 0 {
		return 0, fmt.Errorf("cannot grow %d GiB by %d%%", size, increment)
	}
	if inc > math.MaxInt64-100 || size > math.MaxInt64/(100+inc) {
		return 0, fmt.Errorf("growing %d GiB by %d%% overflows the volume size", size, increment)
	}
	return size * (100 + inc) / 100, nil
}

// GrowResult is the outcome of a resize request. Success is false when the
// modification was rejected, failed or did not settle in time.
type GrowResult struct {
	Success  bool
	TimedOut bool
	Message  string
	OldSize  int64
	NewSize  int64
}

// Grower resizes a volume and waits for the modification to settle
type Grower struct {
	Volumes  blockstore.VolumeService
	Interval time.Duration
	Timeout  time.Duration
}

// Grow reads the current size of volumeID, requests the grown size and polls
// until the modification is optimizing or completed. Only a failure to read
// or compute the size is returned as an error; the resize outcome is in the
// result.
func (g *Grower) Grow(ctx context.Context, volumeID string, increment int) (*GrowResult, error) {
	size, err := g.currentSize(ctx, volumeID)
	if err != nil {
		return nil, awserrors.NewError(awserrors.ErrorVolumeSize, volumeID, err)
	}

	newSize, err := GrowSize(size, increment)
	if err != nil {
		return nil, awserrors.NewError(awserrors.ErrorInvalidParameterValue, volumeID, err)
	}

	res := &GrowResult{OldSize: size, NewSize: newSize}

	_, err = g.Volumes.ModifyVolume(ctx, &ec2.ModifyVolumeInput{
		VolumeId: aws.String(volumeID),
		Size:     aws.Int64(res.NewSize),
	})
	if err != nil {
		res.Message = err.Error()
		return res, nil
	}

	err = poll.Until(ctx, g.Interval, g.Timeout, func(ctx context.Context) (bool, error) {
		return g.modificationSettled(ctx, volumeID)
	})
	if err != nil {
		res.TimedOut = errors.Is(err, poll.ErrTimedOut)
		res.Message = err.Error()
		return res, nil
	}

	res.Success = true
	res.Message = fmt.Sprintf("volume %s resized from %d GiB to %d GiB", volumeID, res.OldSize, res.NewSize)
	return res, nil
}

func (g *Grower) currentSize(ctx context.Context, volumeID string) (int64, error) {
	out, err := g.Volumes.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: aws.StringSlice([]string{volumeID}),
	})
	if err != nil {
		return 0, err
	}
	if len(out.Volumes) == 0 || out.Volumes[0].Size == nil {
		return 0, fmt.Errorf("volume %s not found", volumeID)
	}
	return aws.Int64Value(out.Volumes[0].Size), nil
}

// modificationSettled reports whether the latest modification of volumeID is
// optimizing or completed. A failed modification is an error; throttled or
// retryable describe calls are treated as pending.
func (g *Grower) modificationSettled(ctx context.Context, volumeID string) (bool, error) {
	out, err := g.Volumes.DescribeVolumesModifications(ctx, &ec2.DescribeVolumesModificationsInput{
		VolumeIds: aws.StringSlice([]string{volumeID}),
	})
	if err != nil {
		if awserrors.IsTransient(err) {
			slog.Warn("Modification status unavailable, retrying", "volumeId", volumeID, "error", err)
			return false, nil
		}
		return false, err
	}
	if len(out.VolumesModifications) == 0 {
		return false, nil
	}

	mod := out.VolumesModifications[0]
	switch aws.StringValue(mod.ModificationState) {
	case ec2.VolumeModificationStateOptimizing, ec2.VolumeModificationStateCompleted:
		return true, nil
	case ec2.VolumeModificationStateFailed:
		return false, fmt.Errorf("modification of %s failed: %s", volumeID, aws.StringValue(mod.StatusMessage))
	}
	return false, nil
}
