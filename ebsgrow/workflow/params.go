package workflow

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
)

// DefaultIncrement is the growth percentage applied when a request has none.
const DefaultIncrement = 10

// Params are the per-request inputs of a run
type Params struct {
	InstanceID string `json:"instance_id,omitempty"`
	VolumeID   string `json:"volume_id,omitempty"`
	Increment  int    `json:"inc"`
	RequestID  string `json:"request_id,omitempty"`
}

// ParseParams builds Params from raw query values. An empty or missing inc
// yields defaultInc, or DefaultIncrement when defaultInc is 0; anything that
// is not a non-negative integer is rejected.
func ParseParams(instanceID, volumeID, inc string, defaultInc int) (Params, error) {
	increment, err := ParseIncrement(inc, defaultInc)
	if err != nil {
		return Params{}, err
	}
	return Params{
		InstanceID: strings.TrimSpace(instanceID),
		VolumeID:   strings.TrimSpace(volumeID),
		Increment:  increment,
	}, nil
}

// ParseIncrement parses the inc query parameter
func ParseIncrement(raw string, defaultInc int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if defaultInc == 0 {
			return DefaultIncrement, nil
		}
		return defaultInc, nil
	}

	inc, err := strconv.Atoi(raw)
	if err != nil {
		return 0, awserrors.NewErrorf(awserrors.ErrorInvalidParameterValue, "", "inc must be an integer, got %q", raw)
	}
	if inc < 0 {
		return 0, awserrors.NewErrorf(awserrors.ErrorInvalidParameterValue, "", "inc must not be negative, got %d", inc)
	}
	return inc, nil
}

// BuildFilters returns the DescribeVolumes filters for params: always
// status=in-use, plus the instance and volume filters that were supplied.
func BuildFilters(params Params) []*ec2.Filter {
	filters := []*ec2.Filter{
		{Name: aws.String("status"), Values: aws.StringSlice([]string{ec2.VolumeStateInUse})},
	}

	if params.InstanceID != "" {
		filters = append(filters, &ec2.Filter{
			Name:   aws.String("attachment.instance-id"),
			Values: aws.StringSlice([]string{params.InstanceID}),
		})
	}

	if params.VolumeID != "" {
		filters = append(filters, &ec2.Filter{
			Name:   aws.String("volume-id"),
			Values: aws.StringSlice([]string{params.VolumeID}),
		})
	}

	return filters
}
