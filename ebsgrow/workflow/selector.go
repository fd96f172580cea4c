package workflow

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/blockstore"
)

// SelectVolumes returns the in-use volumes matching params, in provider
// order, following NextToken until the listing is exhausted.
func SelectVolumes(ctx context.Context, svc blockstore.VolumeService, params Params) ([]*ec2.Volume, error) {
	input := &ec2.DescribeVolumesInput{Filters: BuildFilters(params)}

	var volumes []*ec2.Volume
	for {
		out, err := svc.DescribeVolumes(ctx, input)
		if err != nil {
			return nil, awserrors.NewError(awserrors.ErrorFilterVolumes, params.VolumeID, err)
		}
		volumes = append(volumes, out.Volumes...)

		if aws.StringValue(out.NextToken) == "" {
			return volumes, nil
		}
		input.NextToken = out.NextToken
	}
}
