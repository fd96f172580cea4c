package blockstore

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
)

// EC2VolumeService calls the EC2 API through aws-sdk-go
type EC2VolumeService struct {
	client ec2iface.EC2API
	waiter WaiterOptions
}

// NewEC2VolumeService creates an EC2 backed volume service from sess
func NewEC2VolumeService(sess *session.Session, waiter WaiterOptions) *EC2VolumeService {
	return NewEC2VolumeServiceWithClient(ec2.New(sess), waiter)
}

// NewEC2VolumeServiceWithClient wraps an existing EC2 client
func NewEC2VolumeServiceWithClient(client ec2iface.EC2API, waiter WaiterOptions) *EC2VolumeService {
	return &EC2VolumeService{client: client, waiter: waiter}
}

func (s *EC2VolumeService) DescribeVolumes(ctx context.Context, input *ec2.DescribeVolumesInput) (*ec2.DescribeVolumesOutput, error) {
	return s.client.DescribeVolumesWithContext(ctx, input)
}

func (s *EC2VolumeService) CreateSnapshot(ctx context.Context, input *ec2.CreateSnapshotInput) (*ec2.Snapshot, error) {
	return s.client.CreateSnapshotWithContext(ctx, input)
}

func (s *EC2VolumeService) WaitUntilSnapshotCompleted(ctx context.Context, input *ec2.DescribeSnapshotsInput) error {
	var opts []request.WaiterOption

	if s.waiter.Delay > 0 {
		opts = append(opts, request.WithWaiterDelay(request.ConstantWaiterDelay(s.waiter.Delay)))
	}

	if s.waiter.MaxAttempts > 0 {
		opts = append(opts, request.WithWaiterMaxAttempts(s.waiter.MaxAttempts))
	}

	slog.Debug("Waiting for snapshot", "snapshotIds", input.SnapshotIds, "delay", s.waiter.Delay, "maxAttempts", s.waiter.MaxAttempts)

	return s.client.WaitUntilSnapshotCompletedWithContext(ctx, input, opts...)
}

func (s *EC2VolumeService) CreateTags(ctx context.Context, input *ec2.CreateTagsInput) (*ec2.CreateTagsOutput, error) {
	return s.client.CreateTagsWithContext(ctx, input)
}

func (s *EC2VolumeService) ModifyVolume(ctx context.Context, input *ec2.ModifyVolumeInput) (*ec2.ModifyVolumeOutput, error) {
	return s.client.ModifyVolumeWithContext(ctx, input)
}

func (s *EC2VolumeService) DescribeVolumesModifications(ctx context.Context, input *ec2.DescribeVolumesModificationsInput) (*ec2.DescribeVolumesModificationsOutput, error) {
	return s.client.DescribeVolumesModificationsWithContext(ctx, input)
}
