package workflow

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/blockstore"
	"github.com/samber/lo"
)

// NameTag is the tag key read from volumes and written to snapshots.
const NameTag = "Name"

// SnapshotName derives the display name of a volume's snapshot: the volume's
// Name tag, otherwise "Instance: <attached instance>".
func SnapshotName(vol *ec2.Volume) string {
	tag, ok := lo.Find(vol.Tags, func(t *ec2.Tag) bool {
		return aws.StringValue(t.Key) == NameTag
	})
	if ok {
		return aws.StringValue(tag.Value)
	}

	if instanceID := AttachedInstance(vol); instanceID != "" {
		return fmt.Sprintf("Instance: %s", instanceID)
	}

	return fmt.Sprintf("Volume: %s", aws.StringValue(vol.VolumeId))
}

// AttachedInstance returns the first attachment's instance id, or "".
func AttachedInstance(vol *ec2.Volume) string {
	if len(vol.Attachments) == 0 {
		return ""
	}
	return aws.StringValue(vol.Attachments[0].InstanceId)
}

// CreateSnapshot requests a snapshot of vol and blocks until the provider
// reports it completed.
func CreateSnapshot(ctx context.Context, svc blockstore.VolumeService, vol *ec2.Volume, description string) (*ec2.Snapshot, error) {
	volumeID := aws.StringValue(vol.VolumeId)

	snap, err := svc.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    vol.VolumeId,
		Description: aws.String(description),
	})
	if err != nil {
		return nil, awserrors.NewError(awserrors.ErrorCreateSnapshot, volumeID, err)
	}

	err = svc.WaitUntilSnapshotCompleted(ctx, &ec2.DescribeSnapshotsInput{
		SnapshotIds: []*string{snap.SnapshotId},
	})
	if err != nil {
		if awserrors.IsWaiterMaxAttempts(err) {
			return snap, awserrors.NewError(awserrors.ErrorSnapshotNotCompleted, volumeID, err)
		}
		return snap, awserrors.NewError(awserrors.ErrorSnapshotWait, volumeID, err)
	}

	return snap, nil
}

// TagSnapshot sets the Name tag of snap.
func TagSnapshot(ctx context.Context, svc blockstore.VolumeService, snap *ec2.Snapshot, name string) error {
	_, err := svc.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []*string{snap.SnapshotId},
		Tags:      []*ec2.Tag{{Key: aws.String(NameTag), Value: aws.String(name)}},
	})
	if err != nil {
		return awserrors.NewError(awserrors.ErrorTagSnapshot, aws.StringValue(snap.VolumeId), err)
	}
	return nil
}
