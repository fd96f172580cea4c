package utils

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
)

// SessionOptions describes how to reach the AWS (or AWS compatible) control plane.
type SessionOptions struct {
	Region    string
	Endpoint  string // Empty for the public AWS endpoints
	Profile   string
	AccessKey string
	SecretKey string
	Insecure  bool // Skip TLS verification, for self-signed Hive gateways
}

// NewSession builds an aws-sdk-go session. Static credentials are only used
// when both keys are set, otherwise the default chain (env, shared config,
// Lambda execution role) applies.
func NewSession(opts SessionOptions) (*session.Session, error) {
	cfg := aws.NewConfig()

	if opts.Region != "" {
		cfg = cfg.WithRegion(opts.Region)
	}

	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}

	if opts.AccessKey != "" && opts.SecretKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, ""))
	}

	if opts.Insecure {
		cfg = cfg.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		})
	}

	return session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		Profile:           opts.Profile,
		SharedConfigState: session.SharedConfigEnable,
	})
}

// Generate JSON Error Payload
func GenerateErrorPayload(code string) (jsonResponse []byte) {

	var responseError ec2.ResponseError
	responseError.Code = aws.String(code)

	jsonResponse, err := json.Marshal(responseError)
	if err != nil {
		slog.Error("GenerateErrorPayload could not marshal JSON payload", "err", err)
		return nil
	}

	return

}

// Validate the payload is an ec2.ResponseError
func ValidateErrorPayload(payload []byte) (responseError ec2.ResponseError, err error) {

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	err = decoder.Decode(&responseError)

	if err == nil && responseError.Code != nil {
		// Decoded as ResponseError with a Code, a real error response
		return responseError, errors.New("ResponseError detected")
	}

	return responseError, nil

}
