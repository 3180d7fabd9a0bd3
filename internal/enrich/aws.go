package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

// awsMetricNames are the EC2 metrics fetched during enrichment.
var awsMetricNames = []string{"CPUUtilization", "NetworkIn", "NetworkOut", "StatusCheckFailed"}

// AWSProvider serves all three enrichment interfaces from the EC2,
// CloudWatch, and CloudWatch Logs APIs.
type AWSProvider struct {
	ec2      *ec2.Client
	cw       *cloudwatch.Client
	logs     *cloudwatchlogs.Client
	logGroup string
}

// NewAWSProvider creates a provider from a resolved SDK config. logGroup is
// the CloudWatch Logs group searched during log enrichment; empty disables
// log fetching.
func NewAWSProvider(cfg aws.Config, logGroup string) *AWSProvider {
	return &AWSProvider{
		ec2:      ec2.NewFromConfig(cfg),
		cw:       cloudwatch.NewFromConfig(cfg),
		logs:     cloudwatchlogs.NewFromConfig(cfg),
		logGroup: logGroup,
	}
}

// GetInstance resolves an EC2 instance id to resource metadata.
func (p *AWSProvider) GetInstance(ctx context.Context, resourceID string) (*models.ResourceMetadata, error) {
	out, err := p.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{resourceID},
	})
	if err != nil {
		return nil, errors.Providerf("describe_instance", "aws", err)
	}

	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			meta := &models.ResourceMetadata{
				ID:    aws.ToString(inst.InstanceId),
				Shape: string(inst.InstanceType),
				Tags:  map[string]string{},
			}
			if inst.Placement != nil {
				meta.Zone = aws.ToString(inst.Placement.AvailabilityZone)
			}
			for _, tag := range inst.Tags {
				key, value := aws.ToString(tag.Key), aws.ToString(tag.Value)
				meta.Tags[key] = value
				if key == "Name" {
					meta.DisplayName = value
				}
			}
			if meta.DisplayName == "" {
				meta.DisplayName = meta.ID
			}
			return meta, nil
		}
	}
	// Not found is not an error: the enricher proceeds without metadata.
	return nil, nil
}

// FetchMetrics pulls recent EC2 metric averages for the instance.
func (p *AWSProvider) FetchMetrics(ctx context.Context, resourceID string, lookback time.Duration) ([]models.MetricSample, error) {
	end := time.Now()
	start := end.Add(-lookback)

	queries := make([]cwtypes.MetricDataQuery, 0, len(awsMetricNames))
	for i, name := range awsMetricNames {
		queries = append(queries, cwtypes.MetricDataQuery{
			Id:    aws.String(fmt.Sprintf("m%d", i)),
			Label: aws.String(name),
			MetricStat: &cwtypes.MetricStat{
				Metric: &cwtypes.Metric{
					Namespace:  aws.String("AWS/EC2"),
					MetricName: aws.String(name),
					Dimensions: []cwtypes.Dimension{
						{Name: aws.String("InstanceId"), Value: aws.String(resourceID)},
					},
				},
				Period: aws.Int32(60),
				Stat:   aws.String("Average"),
			},
		})
	}

	out, err := p.cw.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		StartTime:         aws.Time(start),
		EndTime:           aws.Time(end),
		MetricDataQueries: queries,
	})
	if err != nil {
		return nil, errors.Providerf("fetch_metrics", "aws", err)
	}

	var samples []models.MetricSample
	for _, result := range out.MetricDataResults {
		name := aws.ToString(result.Label)
		for i := range result.Values {
			samples = append(samples, models.MetricSample{
				Name:      name,
				Namespace: "AWS/EC2",
				Value:     result.Values[i],
				Timestamp: result.Timestamps[i],
			})
		}
	}
	return samples, nil
}

// FetchLogs searches the configured log group for events mentioning the
// resource within the lookback window.
func (p *AWSProvider) FetchLogs(ctx context.Context, resourceID string, lookback time.Duration, query string) ([]models.LogEvent, error) {
	if p.logGroup == "" {
		return []models.LogEvent{}, nil
	}

	pattern := query
	if pattern == "" {
		pattern = fmt.Sprintf("%q", resourceID)
	}

	out, err := p.logs.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:  aws.String(p.logGroup),
		StartTime:     aws.Int64(time.Now().Add(-lookback).UnixMilli()),
		FilterPattern: aws.String(pattern),
		Limit:         aws.Int32(100),
	})
	if err != nil {
		return nil, errors.Providerf("fetch_logs", "aws", err)
	}

	events := make([]models.LogEvent, 0, len(out.Events))
	for _, ev := range out.Events {
		events = append(events, models.LogEvent{
			ID:        aws.ToString(ev.EventId),
			Timestamp: time.UnixMilli(aws.ToInt64(ev.Timestamp)),
			Message:   aws.ToString(ev.Message),
		})
	}
	return events, nil
}
