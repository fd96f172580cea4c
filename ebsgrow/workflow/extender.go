package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/remotecmd"
)

// ErrMalformedOutput is returned when df output has no device line.
var ErrMalformedOutput = errors.New("malformed command output")

// ParseRootDevice extracts the device of a df listing: the first field of the
// second line. The first line is the df header.
func ParseRootDevice(output string) (string, error) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) < 2 {
		return "", fmt.Errorf("%w: expected at least 2 lines, got %d", ErrMalformedOutput, len(lines))
	}

	fields := strings.Fields(lines[1])
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty device line", ErrMalformedOutput)
	}
	return fields[0], nil
}

// ExtendResult records what the guest extension did
type ExtendResult struct {
	RootDevice      string
	FilesystemGrown bool
	PartitionGrown  bool
}

// Extender grows the guest filesystem of an instance after its volume grew
type Extender struct {
	Commands *remotecmd.Dispatcher
	RootPath string
}

// Extend discovers the root device, runs resize2fs on it and, only when that
// succeeded, xfs_growfs on the root path. The partition grow outcome is
// recorded but is not an error.
func (e *Extender) Extend(ctx context.Context, volumeID, instanceID string) (*ExtendResult, error) {
	res := &ExtendResult{}

	device, err := e.discoverRootDevice(ctx, instanceID)
	if err != nil {
		return res, awserrors.NewError(awserrors.ErrorMainDisk, volumeID, err)
	}
	res.RootDevice = device

	res.FilesystemGrown, err = e.run(ctx, instanceID, "resize2fs "+device)
	if err != nil {
		return res, awserrors.NewError(awserrors.ErrorExtendFilesystem, volumeID, err)
	}
	if !res.FilesystemGrown {
		slog.Warn("Filesystem grow did not succeed, skipping partition grow", "volumeId", volumeID, "device", device)
		return res, nil
	}

	res.PartitionGrown, err = e.run(ctx, instanceID, "xfs_growfs "+e.rootPath())
	if err != nil {
		return res, awserrors.NewError(awserrors.ErrorExtendFilesystem, volumeID, err)
	}

	return res, nil
}

func (e *Extender) rootPath() string {
	if e.RootPath == "" {
		return "/"
	}
	return e.RootPath
}

func (e *Extender) discoverRootDevice(ctx context.Context, instanceID string) (string, error) {
	inv, err := e.Commands.Run(ctx, instanceID, "df "+e.rootPath())
	if err != nil {
		return "", err
	}
	return ParseRootDevice(inv.Stdout)
}

func (e *Extender) run(ctx context.Context, instanceID, command string) (bool, error) {
	inv, err := e.Commands.Run(ctx, instanceID, command)
	if err != nil {
		return false, err
	}
	return inv.Succeeded(), nil
}
