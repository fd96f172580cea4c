package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/remotecmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dfOutput = "Filesystem     1K-blocks    Used Available Use% Mounted on\n/dev/xvda1      8123812 1834560   6205004  23% /\n"

func newTestExtender(svc remotecmd.CommandService) *Extender {
	return &Extender{
		Commands: remotecmd.NewDispatcher(svc, "", time.Millisecond, time.Second),
		RootPath: "/",
	}
}

func TestParseRootDevice(t *testing.T) {
	dev, err := ParseRootDevice(dfOutput)
	require.NoError(t, err)
	assert.Equal(t, "/dev/xvda1", dev)

	_, err = ParseRootDevice("Filesystem 1K-blocks Used Available Use% Mounted on\n")
	assert.ErrorIs(t, err, ErrMalformedOutput)

	_, err = ParseRootDevice("")
	assert.ErrorIs(t, err, ErrMalformedOutput)

	_, err = ParseRootDevice("header\n   \n")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestExtender_Extend(t *testing.T) {
	svc := remotecmd.NewMockCommandService()
	svc.Results["df"] = remotecmd.MockResult{Status: ssm.CommandInvocationStatusSuccess, Stdout: dfOutput}

	res, err := newTestExtender(svc).Extend(context.Background(), "vol-1", "i-1")
	require.NoError(t, err)
	assert.Equal(t, "/dev/xvda1", res.RootDevice)
	assert.True(t, res.FilesystemGrown)
	assert.True(t, res.PartitionGrown)
	assert.Equal(t, []string{"df /", "resize2fs /dev/xvda1", "xfs_growfs /"}, svc.Sent)
}

func TestExtender_Extend_FilesystemGrowFailed(t *testing.T) {
	svc := remotecmd.NewMockCommandService()
	svc.Results["df"] = remotecmd.MockResult{Status: ssm.CommandInvocationStatusSuccess, Stdout: dfOutput}
	svc.Results["resize2fs"] = remotecmd.MockResult{Status: ssm.CommandInvocationStatusFailed}

	res, err := newTestExtender(svc).Extend(context.Background(), "vol-1", "i-1")
	require.NoError(t, err)
	assert.False(t, res.FilesystemGrown)
	assert.False(t, res.PartitionGrown)
	assert.Equal(t, []string{"df /", "resize2fs /dev/xvda1"}, svc.Sent)
}

func TestExtender_Extend_PartitionGrowFailedIsRecorded(t *testing.T) {
	svc := remotecmd.NewMockCommandService()
	svc.Results["df"] = remotecmd.MockResult{Status: ssm.CommandInvocationStatusSuccess, Stdout: dfOutput}
	svc.Results["xfs_growfs"] = remotecmd.MockResult{Status: ssm.CommandInvocationStatusFailed}

	res, err := newTestExtender(svc).Extend(context.Background(), "vol-1", "i-1")
	require.NoError(t, err)
	assert.True(t, res.FilesystemGrown)
	assert.False(t, res.PartitionGrown)
}

func TestExtender_Extend_MalformedDf(t *testing.T) {
	svc := remotecmd.NewMockCommandService()
	svc.Results["df"] = remotecmd.MockResult{Status: ssm.CommandInvocationStatusSuccess, Stdout: "Filesystem only\n"}

	_, err := newTestExtender(svc).Extend(context.Background(), "vol-1", "i-1")
	require.Error(t, err)
	assert.Equal(t, awserrors.ErrorMainDisk, awserrors.Code(err))
	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.Equal(t, []string{"df /"}, svc.Sent)
}

func TestExtender_Extend_DispatchError(t *testing.T) {
	svc := remotecmd.NewMockCommandService()
	svc.Errors["SendCommand"] = errors.New("InvalidInstanceId")

	_, err := newTestExtender(svc).Extend(context.Background(), "vol-1", "i-1")
	require.Error(t, err)
	assert.Equal(t, awserrors.ErrorMainDisk, awserrors.Code(err))
	assert.Equal(t, 400, awserrors.HTTPCode(err))
}
