// Package workflow implements the volume backup and grow run: select in-use
// volumes, snapshot and tag each one, grow it and optionally extend the guest
// filesystem. Volumes are processed one at a time, stages strictly in order.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/google/uuid"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/blockstore"
	"github.com/mulgadc/ebsgrow/ebsgrow/remotecmd"
	"go.uber.org/multierr"
)

// SuccessMessage is the response body of a run without errors.
const SuccessMessage = "Snapshot created successfully"

// VolumeResult records what happened to one volume
type VolumeResult struct {
	VolumeID        string `json:"volume_id"`
	InstanceID      string `json:"instance_id,omitempty"`
	SnapshotID      string `json:"snapshot_id,omitempty"`
	SnapshotName    string `json:"snapshot_name,omitempty"`
	OldSize         int64  `json:"old_size,omitempty"`
	NewSize         int64  `json:"new_size,omitempty"`
	Resized         bool   `json:"resized"`
	RootDevice      string `json:"root_device,omitempty"`
	FilesystemGrown bool   `json:"filesystem_grown"`
	PartitionGrown  bool   `json:"partition_grown"`
	Error           string `json:"error,omitempty"`
}

// Report is the outcome of a run, one entry per processed volume
type Report struct {
	RequestID string          `json:"request_id"`
	Params    Params          `json:"params"`
	Volumes   []*VolumeResult `json:"volumes"`
	Error     string          `json:"error,omitempty"`
}

// Notifier receives results as the run progresses
type Notifier interface {
	VolumeProcessed(ctx context.Context, res *VolumeResult)
	RunCompleted(ctx context.Context, report *Report)
}

// Options tune a Workflow
type Options struct {
	SnapshotDescription  string
	ModificationInterval time.Duration
	ModificationTimeout  time.Duration
	RootPath             string
	// ContinueOnError processes every volume and combines their errors
	// instead of stopping at the first failure
	ContinueOnError bool
}

// Workflow runs the backup and grow stages against injected providers
type Workflow struct {
	Volumes blockstore.VolumeService
	// Commands enables guest filesystem extension when non-nil
	Commands *remotecmd.Dispatcher
	Options  Options
	Notifier Notifier
	Metrics  *Metrics
}

// New creates a Workflow. commands may be nil to skip guest extension.
func New(volumes blockstore.VolumeService, commands *remotecmd.Dispatcher, opts Options) *Workflow {
	return &Workflow{Volumes: volumes, Commands: commands, Options: opts}
}

// Run executes the workflow for params. The returned error is a
// *awserrors.StageError, or a multierr combination of them when
// ContinueOnError is set. The report is always non-nil.
func (w *Workflow) Run(ctx context.Context, params Params) (*Report, error) {
	if params.RequestID == "" {
		params.RequestID = uuid.NewString()
	}
	report := &Report{RequestID: params.RequestID, Params: params}

	err := w.run(ctx, params, report)
	if err != nil {
		report.Error = err.Error()
	}

	w.Metrics.run(err)
	if w.Notifier != nil {
		w.Notifier.RunCompleted(ctx, report)
	}

	return report, err
}

func (w *Workflow) run(ctx context.Context, params Params, report *Report) error {
	slog.Info("Selecting volumes", "requestId", params.RequestID, "instanceId", params.InstanceID, "volumeId", params.VolumeID, "inc", params.Increment)

	volumes, err := SelectVolumes(ctx, w.Volumes, params)
	if err != nil {
		w.Metrics.failure(awserrors.Code(err))
		slog.Error("Unable to filter volumes", "requestId", params.RequestID, "err", err)
		return err
	}

	slog.Info("Volumes selected", "requestId", params.RequestID, "count", len(volumes))

	var errs error
	for _, vol := range volumes {
		res, err := w.processVolume(ctx, vol, params.Increment)
		report.Volumes = append(report.Volumes, res)

		if w.Notifier != nil {
			w.Notifier.VolumeProcessed(ctx, res)
		}

		if err != nil {
			w.Metrics.failure(awserrors.Code(err))
			slog.Error("Volume failed", "requestId", params.RequestID, "volumeId", res.VolumeID, "err", err)
			if !w.Options.ContinueOnError {
				return err
			}
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (w *Workflow) processVolume(ctx context.Context, vol *ec2.Volume, increment int) (res *VolumeResult, err error) {
	res = &VolumeResult{
		VolumeID:   aws.StringValue(vol.VolumeId),
		InstanceID: AttachedInstance(vol),
	}
	defer func() {
		if err != nil {
			res.Error = err.Error()
		}
	}()

	slog.Info("Backing up volume", "volumeId", res.VolumeID, "az", aws.StringValue(vol.AvailabilityZone))

	start := time.Now()
	snap, err := CreateSnapshot(ctx, w.Volumes, vol, w.Options.SnapshotDescription)
	if snap != nil {
		res.SnapshotID = aws.StringValue(snap.SnapshotId)
	}
	w.Metrics.observeStage("snapshot", start)
	if err != nil {
		return res, err
	}

	res.SnapshotName = SnapshotName(vol)
	if err = TagSnapshot(ctx, w.Volumes, snap, res.SnapshotName); err != nil {
		return res, err
	}
	w.Metrics.snapshotCreated()

	start = time.Now()
	grower := &Grower{
		Volumes:  w.Volumes,
		Interval: w.Options.ModificationInterval,
		Timeout:  w.Options.ModificationTimeout,
	}
	grown, err := grower.Grow(ctx, res.VolumeID, increment)
	w.Metrics.observeStage("resize", start)
	if err != nil {
		return res, err
	}

	res.OldSize, res.NewSize = grown.OldSize, grown.NewSize
	if !grown.Success {
		code := awserrors.ErrorExtendVolume
		if grown.TimedOut {
			code = awserrors.ErrorModificationTimedOut
		}
		return res, awserrors.NewErrorf(code, res.VolumeID, "%s", grown.Message)
	}
	res.Resized = true
	w.Metrics.volumeGrown(grown.OldSize, grown.NewSize)

	slog.Info("Volume resized", "volumeId", res.VolumeID, "oldSize", grown.OldSize, "newSize", grown.NewSize)

	if w.Commands == nil {
		return res, nil
	}

	if res.InstanceID == "" {
		slog.Warn("Volume has no attachment, skipping filesystem extension", "volumeId", res.VolumeID)
		return res, nil
	}

	start = time.Now()
	extender := &Extender{Commands: w.Commands, RootPath: w.Options.RootPath}
	extended, err := extender.Extend(ctx, res.VolumeID, res.InstanceID)
	w.Metrics.observeStage("extend", start)
	res.RootDevice = extended.RootDevice
	res.FilesystemGrown = extended.FilesystemGrown
	res.PartitionGrown = extended.PartitionGrown
	if err != nil {
		return res, err
	}

	slog.Info("Guest filesystem extended", "volumeId", res.VolumeID, "device", extended.RootDevice,
		"filesystemGrown", extended.FilesystemGrown, "partitionGrown", extended.PartitionGrown)

	return res, nil
}
