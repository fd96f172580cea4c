package blockstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/samber/lo"
)

// MockVolumeService is an in-memory VolumeService for tests. It honours the
// status, volume-id and attachment.instance-id filters, records every call
// and returns the error registered for a method name, if any.
type MockVolumeService struct {
	mu sync.Mutex

	Volumes   []*ec2.Volume
	Snapshots map[string]*ec2.Snapshot
	Tags      map[string][]*ec2.Tag

	// ModificationStates are returned in order by successive
	// DescribeVolumesModifications calls; the last one repeats. Empty means
	// "completed".
	ModificationStates []string

	// Errors keyed by method name, e.g. "CreateSnapshot"
	Errors map[string]error

	Calls []string

	nextID       int
	modifyPolled int
}

// NewMockVolumeService creates a mock seeded with volumes
func NewMockVolumeService(volumes ...*ec2.Volume) *MockVolumeService {
	return &MockVolumeService{
		Volumes:   volumes,
		Snapshots: map[string]*ec2.Snapshot{},
		Tags:      map[string][]*ec2.Tag{},
		Errors:    map[string]error{},
	}
}

// CallsTo returns how many times method was called
func (s *MockVolumeService) CallsTo(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Count(s.Calls, method)
}

func (s *MockVolumeService) record(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, method)
	return s.Errors[method]
}

func (s *MockVolumeService) findVolume(id string) *ec2.Volume {
	vol, _ := lo.Find(s.Volumes, func(v *ec2.Volume) bool {
		return aws.StringValue(v.VolumeId) == id
	})
	return vol
}

func (s *MockVolumeService) DescribeVolumes(ctx context.Context, input *ec2.DescribeVolumesInput) (*ec2.DescribeVolumesOutput, error) {
	if err := s.record("DescribeVolumes"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := aws.StringValueSlice(input.VolumeIds)
	var out []*ec2.Volume
	for _, vol := range s.Volumes {
		if len(ids) > 0 && !lo.Contains(ids, aws.StringValue(vol.VolumeId)) {
			continue
		}
		if !matchesFilters(vol, input.Filters) {
			continue
		}
		out = append(out, vol)
	}

	if len(ids) > 0 && len(out) == 0 {
		return nil, awserr.New("InvalidVolume.NotFound", fmt.Sprintf("The volume '%s' does not exist.", ids[0]), nil)
	}

	return &ec2.DescribeVolumesOutput{Volumes: out}, nil
}

func matchesFilters(vol *ec2.Volume, filters []*ec2.Filter) bool {
	for _, f := range filters {
		values := aws.StringValueSlice(f.Values)
		switch aws.StringValue(f.Name) {
		case "status":
			if !lo.Contains(values, aws.StringValue(vol.State)) {
				return false
			}
		case "volume-id":
			if !lo.Contains(values, aws.StringValue(vol.VolumeId)) {
				return false
			}
		case "attachment.instance-id":
			if !lo.SomeBy(vol.Attachments, func(a *ec2.VolumeAttachment) bool {
				return lo.Contains(values, aws.StringValue(a.InstanceId))
			}) {
				return false
			}
		}
	}
	return true
}

func (s *MockVolumeService) CreateSnapshot(ctx context.Context, input *ec2.CreateSnapshotInput) (*ec2.Snapshot, error) {
	if err := s.record("CreateSnapshot"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	snap := &ec2.Snapshot{
		SnapshotId:  aws.String(fmt.Sprintf("snap-%017d", s.nextID)),
		VolumeId:    input.VolumeId,
		Description: input.Description,
		State:       aws.String(ec2.SnapshotStatePending),
	}
	s.Snapshots[*snap.SnapshotId] = snap
	return snap, nil
}

func (s *MockVolumeService) WaitUntilSnapshotCompleted(ctx context.Context, input *ec2.DescribeSnapshotsInput) error {
	if err := s.record("WaitUntilSnapshotCompleted"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range aws.StringValueSlice(input.SnapshotIds) {
		snap, ok := s.Snapshots[id]
		if !ok {
			return awserr.New("InvalidSnapshot.NotFound", fmt.Sprintf("The snapshot '%s' does not exist.", id), nil)
		}
		snap.State = aws.String(ec2.SnapshotStateCompleted)
	}
	return nil
}

func (s *MockVolumeService) CreateTags(ctx context.Context, input *ec2.CreateTagsInput) (*ec2.CreateTagsOutput, error) {
	if err := s.record("CreateTags"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, res := range aws.StringValueSlice(input.Resources) {
		s.Tags[res] = append(s.Tags[res], input.Tags...)
	}
	return &ec2.CreateTagsOutput{}, nil
}

// TagValue returns the value of tag key on resource, or "" if unset
func (s *MockVolumeService) TagValue(resource, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, _ := lo.Find(s.Tags[resource], func(t *ec2.Tag) bool { return aws.StringValue(t.Key) == key })
	if tag == nil {
		return ""
	}
	return aws.StringValue(tag.Value)
}

func (s *MockVolumeService) ModifyVolume(ctx context.Context, input *ec2.ModifyVolumeInput) (*ec2.ModifyVolumeOutput, error) {
	if err := s.record("ModifyVolume"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vol := s.findVolume(aws.StringValue(input.VolumeId))
	if vol == nil {
		return nil, awserr.New("InvalidVolume.NotFound", fmt.Sprintf("The volume '%s' does not exist.", aws.StringValue(input.VolumeId)), nil)
	}

	mod := &ec2.VolumeModification{
		VolumeId:          vol.VolumeId,
		OriginalSize:      vol.Size,
		TargetSize:        input.Size,
		ModificationState: aws.String(ec2.VolumeModificationStateModifying),
	}
	vol.Size = input.Size
	s.modifyPolled = 0

	return &ec2.ModifyVolumeOutput{VolumeModification: mod}, nil
}

func (s *MockVolumeService) DescribeVolumesModifications(ctx context.Context, input *ec2.DescribeVolumesModificationsInput) (*ec2.DescribeVolumesModificationsOutput, error) {
	if err := s.record("DescribeVolumesModifications"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := ec2.VolumeModificationStateCompleted
	if n := len(s.ModificationStates); n > 0 {
		state = s.ModificationStates[min(s.modifyPolled, n-1)]
	}
	s.modifyPolled++

	var mods []*ec2.VolumeModification
	for _, id := range aws.StringValueSlice(input.VolumeIds) {
		mods = append(mods, &ec2.VolumeModification{
			VolumeId:          aws.String(id),
			ModificationState: aws.String(state),
		})
	}
	return &ec2.DescribeVolumesModificationsOutput{VolumesModifications: mods}, nil
}
