package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/mulgadc/ebsgrow/ebsgrow/blockstore"
	"github.com/mulgadc/ebsgrow/ebsgrow/config"
	"github.com/mulgadc/ebsgrow/ebsgrow/policy"
	"github.com/mulgadc/ebsgrow/ebsgrow/remotecmd"
	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	cfg.Region = "ap-southeast-2"
	cfg.Resize.PollInterval = time.Millisecond
	cfg.Resize.Timeout = time.Second
	cfg.Guest.PollInterval = time.Millisecond
	cfg.Guest.Timeout = time.Second
	return cfg
}

func startTestNATSServer(t *testing.T) string {
	t.Helper()

	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server failed to start")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestNewWithServices_GuestExtension(t *testing.T) {
	cfg := testConfig(t)
	cfg.Guest.Enabled = true

	vols := blockstore.NewMockVolumeService(&ec2.Volume{
		VolumeId:    aws.String("vol-1"),
		Size:        aws.Int64(100),
		State:       aws.String(ec2.VolumeStateInUse),
		Attachments: []*ec2.VolumeAttachment{{InstanceId: aws.String("i-1")}},
	})
	cmds := remotecmd.NewMockCommandService()
	cmds.Results["df"] = remotecmd.MockResult{
		Status: ssm.CommandInvocationStatusSuccess,
		Stdout: "Filesystem 1K-blocks Used Available Use% Mounted on\n/dev/nvme0n1p1 8123812 1834560 6205004 23% /\n",
	}

	a := NewWithServices(cfg, vols, cmds, nil)
	defer a.Close()

	require.NotNil(t, a.Workflow.Commands)
	assert.Nil(t, a.Workflow.Notifier)

	resp := a.Gateway.Invoke(context.Background(), "req-1", "i-1", "", "20")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"df /", "resize2fs /dev/nvme0n1p1", "xfs_growfs /"}, cmds.Sent)
}

func TestNewWithServices_GuestDisabled(t *testing.T) {
	cfg := testConfig(t)
	a := NewWithServices(cfg, blockstore.NewMockVolumeService(), remotecmd.NewMockCommandService(), nil)
	assert.Nil(t, a.Workflow.Commands)
	assert.Equal(t, cfg.Resize.DefaultIncrement, a.Gateway.DefaultIncrement)
	assert.Equal(t, "Created by backup_ebs lambda function", a.Workflow.Options.SnapshotDescription)
}

func TestNew_AWSBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Endpoint = "https://localhost:9999"
	cfg.AccessKey = "AKIATEST"
	cfg.SecretKey = "secret"
	cfg.Guest.Enabled = true

	a, err := New(cfg, false)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &blockstore.EC2VolumeService{}, a.Workflow.Volumes)
	assert.NotNil(t, a.Workflow.Commands)
	assert.Nil(t, a.NATSConn)
}

func TestNew_NATSBackendPublishesEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = config.BackendNATS
	cfg.NATS.Host = startTestNATSServer(t)

	a, err := New(cfg, false)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.NATSConn)
	assert.NotNil(t, a.Workflow.Notifier)
	assert.Nil(t, a.Workflow.Commands)

	sub, err := a.NATSConn.SubscribeSync("ebsgrow.events.report")
	require.NoError(t, err)

	// ec2.DescribeVolumes has no responder, so the run fails at selection
	_, err = a.Workflow.Run(context.Background(), workflow.Params{Increment: 10})
	require.Error(t, err)

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	var report workflow.Report
	require.NoError(t, json.Unmarshal(msg.Data, &report))
	assert.Contains(t, report.Error, "Unable to filter volumes")
}

func TestNew_NATSUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = config.BackendNATS
	cfg.NATS.Host = "nats://127.0.0.1:1"

	_, err := New(cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS connect failed")
}

func TestNew_PolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")

	data, err := json.Marshal(policy.DeclaredDocument(false))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg := testConfig(t)
	cfg.PolicyFile = path

	a, err := New(cfg, false)
	require.NoError(t, err)
	a.Close()

	cfg.Guest.Enabled = true
	_, err = New(cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssm:SendCommand")
}
