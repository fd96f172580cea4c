package remotecmd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ssm"
)

// MockResult is the scripted outcome of a command
type MockResult struct {
	Status string
	Stdout string
	// InProgressPolls is how many ListCommands/GetCommandInvocation calls
	// report InProgress before the terminal status
	InProgressPolls int
}

type mockCommand struct {
	instanceID string
	result     MockResult
	listed     int
	fetched    int
}

// MockCommandService is an in-memory CommandService for tests. Results are
// matched by command prefix, so "resize2fs" scripts "resize2fs /dev/xvda1".
type MockCommandService struct {
	mu sync.Mutex

	Results map[string]MockResult
	Errors  map[string]error

	// Sent holds every dispatched command line in order
	Sent []string

	commands map[string]*mockCommand
	nextID   int
}

// NewMockCommandService creates an empty mock; unscripted commands succeed
// with no output.
func NewMockCommandService() *MockCommandService {
	return &MockCommandService{
		Results:  map[string]MockResult{},
		Errors:   map[string]error{},
		commands: map[string]*mockCommand{},
	}
}

func (s *MockCommandService) resultFor(command string) MockResult {
	for prefix, res := range s.Results {
		if strings.HasPrefix(command, prefix) {
			return res
		}
	}
	return MockResult{Status: ssm.CommandInvocationStatusSuccess}
}

func (s *MockCommandService) SendCommand(ctx context.Context, input *ssm.SendCommandInput) (*ssm.SendCommandOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	command := strings.Join(aws.StringValueSlice(input.Parameters["commands"]), "\n")
	s.Sent = append(s.Sent, command)

	if err := s.Errors["SendCommand"]; err != nil {
		return nil, err
	}

	s.nextID++
	id := fmt.Sprintf("cmd-%04d", s.nextID)
	s.commands[id] = &mockCommand{
		instanceID: aws.StringValue(input.InstanceIds[0]),
		result:     s.resultFor(command),
	}

	return &ssm.SendCommandOutput{Command: &ssm.Command{
		CommandId:    aws.String(id),
		DocumentName: input.DocumentName,
		InstanceIds:  input.InstanceIds,
		Status:       aws.String(ssm.CommandStatusPending),
	}}, nil
}

func (s *MockCommandService) ListCommands(ctx context.Context, input *ssm.ListCommandsInput) (*ssm.ListCommandsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Errors["ListCommands"]; err != nil {
		return nil, err
	}

	cmd, ok := s.commands[aws.StringValue(input.CommandId)]
	if !ok {
		return &ssm.ListCommandsOutput{}, nil
	}

	status := commandStatus(cmd.result.Status)
	if cmd.listed < cmd.result.InProgressPolls {
		status = ssm.CommandStatusInProgress
	}
	cmd.listed++

	return &ssm.ListCommandsOutput{Commands: []*ssm.Command{{
		CommandId: input.CommandId,
		Status:    aws.String(status),
	}}}, nil
}

func (s *MockCommandService) GetCommandInvocation(ctx context.Context, input *ssm.GetCommandInvocationInput) (*ssm.GetCommandInvocationOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Errors["GetCommandInvocation"]; err != nil {
		return nil, err
	}

	cmd, ok := s.commands[aws.StringValue(input.CommandId)]
	if !ok || cmd.instanceID != aws.StringValue(input.InstanceId) {
		return nil, awsErrInvocationDoesNotExist()
	}

	status := cmd.result.Status
	if cmd.fetched < cmd.result.InProgressPolls {
		status = ssm.CommandInvocationStatusInProgress
	}
	cmd.fetched++

	return &ssm.GetCommandInvocationOutput{
		CommandId:             input.CommandId,
		InstanceId:            input.InstanceId,
		Status:                aws.String(status),
		StandardOutputContent: aws.String(cmd.result.Stdout),
	}, nil
}

// commandStatus maps an invocation status onto the aggregate command status
func commandStatus(invocation string) string {
	switch invocation {
	case ssm.CommandInvocationStatusSuccess:
		return ssm.CommandStatusSuccess
	case ssm.CommandInvocationStatusCancelled:
		return ssm.CommandStatusCancelled
	case ssm.CommandInvocationStatusTimedOut:
		return ssm.CommandStatusTimedOut
	default:
		return ssm.CommandStatusFailed
	}
}

func awsErrInvocationDoesNotExist() error {
	return awserr.New(ssm.ErrCodeInvocationDoesNotExist, "invocation does not exist", nil)
}
