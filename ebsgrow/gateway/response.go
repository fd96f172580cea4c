package gateway

import (
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
)

const ContentType = "text/plain"

// Response is the transport independent outcome of a run, the shape API
// Gateway expects from a proxy integration.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// BuildResponse maps the error of a run onto a Response. A nil error is 200
// with the success message; stage errors carry their own code and message.
func BuildResponse(err error) Response {
	resp := Response{
		StatusCode: awserrors.HTTPCode(err),
		Headers:    map[string]string{"Content-Type": ContentType},
		Body:       workflow.SuccessMessage,
	}
	if err != nil {
		resp.Body = err.Error()
	}
	return resp
}
