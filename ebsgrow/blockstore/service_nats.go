package blockstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/poll"
	"github.com/mulgadc/ebsgrow/ebsgrow/utils"
	"github.com/nats-io/nats.go"
)

// NATSVolumeService sends volume operations to Hive daemons over NATS, using
// the same ec2.<Action> subjects as the Hive AWS gateway.
type NATSVolumeService struct {
	natsConn *nats.Conn
	waiter   WaiterOptions
}

// NewNATSVolumeService creates a new NATS-based volume service
func NewNATSVolumeService(conn *nats.Conn, waiter WaiterOptions) VolumeService {
	return &NATSVolumeService{natsConn: conn, waiter: waiter}
}

func (s *NATSVolumeService) DescribeVolumes(ctx context.Context, input *ec2.DescribeVolumesInput) (*ec2.DescribeVolumesOutput, error) {
	return utils.NATSRequest[ec2.DescribeVolumesOutput](ctx, s.natsConn, "ec2.DescribeVolumes", input, 30*time.Second)
}

func (s *NATSVolumeService) CreateSnapshot(ctx context.Context, input *ec2.CreateSnapshotInput) (*ec2.Snapshot, error) {
	return utils.NATSRequest[ec2.Snapshot](ctx, s.natsConn, "ec2.CreateSnapshot", input, 120*time.Second)
}

// WaitUntilSnapshotCompleted polls ec2.DescribeSnapshots the way the SDK
// waiter does: every Delay, at most MaxAttempts times.
func (s *NATSVolumeService) WaitUntilSnapshotCompleted(ctx context.Context, input *ec2.DescribeSnapshotsInput) error {
	delay := s.waiter.Delay
	if delay <= 0 {
		delay = 15 * time.Second
	}
	attempts := s.waiter.MaxAttempts
	if attempts <= 0 {
		attempts = 40
	}

	err := poll.Until(ctx, delay, delay*time.Duration(attempts), func(ctx context.Context) (bool, error) {
		out, err := utils.NATSRequest[ec2.DescribeSnapshotsOutput](ctx, s.natsConn, "ec2.DescribeSnapshots", input, 30*time.Second)
		if err != nil {
			return false, err
		}
		return snapshotsCompleted(out.Snapshots)
	})

	if errors.Is(err, poll.ErrTimedOut) {
		return awserr.New(request.WaiterResourceNotReadyErrorCode, awserrors.WaiterMaxAttemptsMessage, err)
	}
	return err
}

func (s *NATSVolumeService) CreateTags(ctx context.Context, input *ec2.CreateTagsInput) (*ec2.CreateTagsOutput, error) {
	return utils.NATSRequest[ec2.CreateTagsOutput](ctx, s.natsConn, "ec2.CreateTags", input, 30*time.Second)
}

func (s *NATSVolumeService) ModifyVolume(ctx context.Context, input *ec2.ModifyVolumeInput) (*ec2.ModifyVolumeOutput, error) {
	return utils.NATSRequest[ec2.ModifyVolumeOutput](ctx, s.natsConn, "ec2.ModifyVolume", input, 30*time.Second)
}

func (s *NATSVolumeService) DescribeVolumesModifications(ctx context.Context, input *ec2.DescribeVolumesModificationsInput) (*ec2.DescribeVolumesModificationsOutput, error) {
	return utils.NATSRequest[ec2.DescribeVolumesModificationsOutput](ctx, s.natsConn, "ec2.DescribeVolumesModifications", input, 30*time.Second)
}

// snapshotsCompleted mirrors the acceptors of the SDK SnapshotCompleted
// waiter: done when all snapshots are completed, failure on any error state.
func snapshotsCompleted(snapshots []*ec2.Snapshot) (bool, error) {
	if len(snapshots) == 0 {
		return false, nil
	}
	for _, snap := range snapshots {
		switch aws.StringValue(snap.State) {
		case ec2.SnapshotStateCompleted:
		case ec2.SnapshotStateError:
			return false, awserr.New(request.WaiterResourceNotReadyErrorCode, "failed waiting for successful resource state",
				fmt.Errorf("snapshot %s entered state error: %s", aws.StringValue(snap.SnapshotId), aws.StringValue(snap.StateMessage)))
		default:
			return false, nil
		}
	}
	return true, nil
}
