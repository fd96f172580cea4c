// Package blockstore is the block-storage control capability used by the
// backup workflow: volume discovery, snapshots, tags and online resize.
package blockstore

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/service/ec2"
)

// VolumeService defines the interface for EBS volume and snapshot operations
type VolumeService interface {
	DescribeVolumes(ctx context.Context, input *ec2.DescribeVolumesInput) (*ec2.DescribeVolumesOutput, error)
	CreateSnapshot(ctx context.Context, input *ec2.CreateSnapshotInput) (*ec2.Snapshot, error)
	// WaitUntilSnapshotCompleted blocks until every snapshot matched by input
	// is completed. Giving up after the maximum number of attempts is reported
	// as an awserr.Error with code request.WaiterResourceNotReadyErrorCode.
	WaitUntilSnapshotCompleted(ctx context.Context, input *ec2.DescribeSnapshotsInput) error
	CreateTags(ctx context.Context, input *ec2.CreateTagsInput) (*ec2.CreateTagsOutput, error)
	ModifyVolume(ctx context.Context, input *ec2.ModifyVolumeInput) (*ec2.ModifyVolumeOutput, error)
	DescribeVolumesModifications(ctx context.Context, input *ec2.DescribeVolumesModificationsInput) (*ec2.DescribeVolumesModificationsOutput, error)
}

// WaiterOptions bound WaitUntilSnapshotCompleted.
type WaiterOptions struct {
	Delay       time.Duration
	MaxAttempts int
}
