// Package remotecmd dispatches shell commands to instances through SSM Run
// Command and waits for their captured output.
package remotecmd

import (
	"context"

	"github.com/aws/aws-sdk-go/service/ssm"
)

// CommandService defines the remote-command control operations
type CommandService interface {
	SendCommand(ctx context.Context, input *ssm.SendCommandInput) (*ssm.SendCommandOutput, error)
	ListCommands(ctx context.Context, input *ssm.ListCommandsInput) (*ssm.ListCommandsOutput, error)
	GetCommandInvocation(ctx context.Context, input *ssm.GetCommandInvocationInput) (*ssm.GetCommandInvocationOutput, error)
}
