package remotecmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/poll"
)

// DefaultDocument runs its "commands" parameter with /bin/sh on Linux hosts.
const DefaultDocument = "AWS-RunShellScript"

// Invocation is the terminal outcome of a command on one instance
type Invocation struct {
	CommandID  string
	InstanceID string
	Status     string
	Stdout     string
	Stderr     string
}

// Succeeded reports whether the command finished with status Success
func (inv *Invocation) Succeeded() bool {
	return inv.Status == ssm.CommandInvocationStatusSuccess
}

// Dispatcher runs one command at a time and blocks until it is terminal
type Dispatcher struct {
	Service  CommandService
	Document string
	Interval time.Duration
	Timeout  time.Duration
}

// NewDispatcher creates a Dispatcher using the given poll bounds
func NewDispatcher(svc CommandService, document string, interval, timeout time.Duration) *Dispatcher {
	if document == "" {
		document = DefaultDocument
	}
	return &Dispatcher{Service: svc, Document: document, Interval: interval, Timeout: timeout}
}

// Run sends command to instanceID, waits until the dispatch leaves
// Pending/InProgress, then fetches the invocation until it is terminal.
// Timeouts wrap poll.ErrTimedOut. A dispatched command is never cancelled.
func (d *Dispatcher) Run(ctx context.Context, instanceID, command string) (*Invocation, error) {
	sent, err := d.Service.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName: aws.String(d.Document),
		InstanceIds:  aws.StringSlice([]string{instanceID}),
		Parameters: map[string][]*string{
			"commands": aws.StringSlice([]string{command}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}
	if sent.Command == nil || aws.StringValue(sent.Command.CommandId) == "" {
		return nil, errors.New("send command: response carried no command id")
	}

	commandID := aws.StringValue(sent.Command.CommandId)
	slog.Debug("Command dispatched", "commandId", commandID, "instanceId", instanceID, "command", command)

	err = poll.Until(ctx, d.Interval, d.Timeout, func(ctx context.Context) (bool, error) {
		out, err := d.Service.ListCommands(ctx, &ssm.ListCommandsInput{CommandId: aws.String(commandID)})
		if err != nil {
			return false, err
		}
		if len(out.Commands) == 0 {
			return false, nil
		}
		status := aws.StringValue(out.Commands[0].Status)
		return status != ssm.CommandStatusPending && status != ssm.CommandStatusInProgress, nil
	})
	if err != nil {
		return nil, fmt.Errorf("command %s dispatch: %w", commandID, err)
	}

	inv := &Invocation{CommandID: commandID, InstanceID: instanceID}
	err = poll.Until(ctx, d.Interval, d.Timeout, func(ctx context.Context) (bool, error) {
		out, err := d.Service.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
			CommandId:  aws.String(commandID),
			InstanceId: aws.String(instanceID),
		})
		if err != nil {
			// The invocation can lag behind the command listing
			if awserrors.AWSCode(err) == ssm.ErrCodeInvocationDoesNotExist {
				return false, nil
			}
			return false, err
		}

		inv.Status = aws.StringValue(out.Status)
		inv.Stdout = aws.StringValue(out.StandardOutputContent)
		inv.Stderr = aws.StringValue(out.StandardErrorContent)

		return !pendingInvocation(inv.Status), nil
	})
	if err != nil {
		return nil, fmt.Errorf("command %s invocation: %w", commandID, err)
	}

	slog.Debug("Command finished", "commandId", commandID, "status", inv.Status)
	return inv, nil
}

func pendingInvocation(status string) bool {
	switch status {
	case ssm.CommandInvocationStatusPending, ssm.CommandInvocationStatusInProgress, ssm.CommandInvocationStatusDelayed:
		return true
	}
	return false
}
