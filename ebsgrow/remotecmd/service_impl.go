package remotecmd

import (
	"context"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
)

// SSMCommandService calls the SSM API through aws-sdk-go
type SSMCommandService struct {
	client ssmiface.SSMAPI
}

// NewSSMCommandService creates an SSM backed command service from sess
func NewSSMCommandService(sess *session.Session) *SSMCommandService {
	return NewSSMCommandServiceWithClient(ssm.New(sess))
}

// NewSSMCommandServiceWithClient wraps an existing SSM client
func NewSSMCommandServiceWithClient(client ssmiface.SSMAPI) *SSMCommandService {
	return &SSMCommandService{client: client}
}

func (s *SSMCommandService) SendCommand(ctx context.Context, input *ssm.SendCommandInput) (*ssm.SendCommandOutput, error) {
	return s.client.SendCommandWithContext(ctx, input)
}

func (s *SSMCommandService) ListCommands(ctx context.Context, input *ssm.ListCommandsInput) (*ssm.ListCommandsOutput, error) {
	return s.client.ListCommandsWithContext(ctx, input)
}

func (s *SSMCommandService) GetCommandInvocation(ctx context.Context, input *ssm.GetCommandInvocationInput) (*ssm.GetCommandInvocationOutput, error) {
	return s.client.GetCommandInvocationWithContext(ctx, input)
}
