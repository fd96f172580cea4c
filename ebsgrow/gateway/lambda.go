package gateway

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

// HandleLambda is the API Gateway proxy entry point
func (gw *GatewayConfig) HandleLambda(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	q := req.QueryStringParameters
	resp := gw.Invoke(ctx, requestID, q["instance_id"], q["volume_id"], q["inc"])

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
