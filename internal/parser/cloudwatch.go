package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/triagekit/triagekit/internal/models"
)

// cloudwatchStateTime is the timestamp format CloudWatch uses in
// StateChangeTime ("2024-03-01T09:15:00.000+0000").
const cloudwatchStateTime = "2006-01-02T15:04:05.000-0700"

// snsEnvelope is the SNS notification wrapper CloudWatch alarms arrive in.
type snsEnvelope struct {
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	TopicArn  string `json:"TopicArn"`
	Message   string `json:"Message"`
	Timestamp string `json:"Timestamp"`
}

type cloudwatchAlarm struct {
	AlarmName        string `json:"AlarmName"`
	AlarmDescription string `json:"AlarmDescription"`
	AWSAccountID     string `json:"AWSAccountId"`
	NewStateValue    string `json:"NewStateValue"`
	NewStateReason   string `json:"NewStateReason"`
	StateChangeTime  string `json:"StateChangeTime"`
	Region           string `json:"Region"`
	AlarmArn         string `json:"AlarmArn"`
	Trigger          struct {
		MetricName string `json:"MetricName"`
		Namespace  string `json:"Namespace"`
		Dimensions []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"Dimensions"`
	} `json:"Trigger"`
}

// CloudWatchAdapter parses CloudWatch alarm notifications, either wrapped in
// an SNS envelope or delivered as the bare alarm document.
type CloudWatchAdapter struct{}

// NewCloudWatchAdapter creates a CloudWatch alarm adapter.
func NewCloudWatchAdapter() *CloudWatchAdapter {
	return &CloudWatchAdapter{}
}

// SourceType returns the adapter identifier.
func (a *CloudWatchAdapter) SourceType() string {
	return "cloudwatch"
}

// CanHandle claims payloads that carry CloudWatch alarm markers.
func (a *CloudWatchAdapter) CanHandle(raw []byte) bool {
	s := string(raw)
	if strings.Contains(s, `"AlarmArn"`) || strings.Contains(s, `"AlarmName"`) {
		return true
	}
	// SNS envelope with an alarm document inside Message
	return strings.Contains(s, `"TopicArn"`) && strings.Contains(s, "AlarmName")
}

// ParseAlert converts a CloudWatch alarm payload to the canonical Alert.
// OK transitions return (nil, nil) and are skipped upstream.
func (a *CloudWatchAdapter) ParseAlert(raw []byte) (*models.Alert, error) {
	messageID := ""
	body := raw

	var envelope snsEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		messageID = envelope.MessageID
		body = []byte(envelope.Message)
	}

	var alarm cloudwatchAlarm
	if err := json.Unmarshal(body, &alarm); err != nil {
		return nil, fmt.Errorf("invalid alarm document: %w", err)
	}
	if alarm.AlarmName == "" {
		return nil, fmt.Errorf("alarm document missing AlarmName")
	}

	severity, skip := mapCloudWatchState(alarm.NewStateValue)
	if skip {
		return nil, nil
	}

	dimensions := make(map[string]string, len(alarm.Trigger.Dimensions))
	for _, d := range alarm.Trigger.Dimensions {
		dimensions[d.Name] = d.Value
	}

	labels := map[string]string{}
	if alarm.Region != "" {
		labels["region"] = alarm.Region
	}
	if alarm.AWSAccountID != "" {
		labels["accountId"] = alarm.AWSAccountID
	}
	if alarm.Trigger.MetricName != "" {
		labels["metricName"] = alarm.Trigger.MetricName
	}
	if alarm.Trigger.Namespace != "" {
		labels["namespace"] = alarm.Trigger.Namespace
	}

	return &models.Alert{
		ID:            deterministicID("cw", messageID, alarm.AlarmArn),
		Title:         alarm.AlarmName,
		Message:       firstNonEmpty(alarm.NewStateReason, alarm.AlarmDescription),
		Severity:      severity,
		SourceService: a.SourceType(),
		Dimensions:    dimensions,
		Labels:        labels,
		Timestamp:     parseTimestamp(alarm.StateChangeTime, cloudwatchStateTime),
		RawPayload:    string(raw),
	}, nil
}

// mapCloudWatchState maps an alarm state to a severity. OK transitions are
// recoveries and skipped; unknown states degrade to INFO.
func mapCloudWatchState(state string) (models.Severity, bool) {
	switch strings.ToUpper(state) {
	case "ALARM":
		return models.SeverityCritical, false
	case "INSUFFICIENT_DATA":
		return models.SeverityWarning, false
	case "OK":
		return "", true
	default:
		return models.SeverityInfo, false
	}
}

// deterministicID derives a stable alert id from the message id and alarm
// identifier so re-delivered notifications map to the same alert.
func deterministicID(prefix, messageID, arn string) string {
	sum := sha256.Sum256([]byte(messageID + ":" + arn))
	return prefix + "-" + hex.EncodeToString(sum[:])[:16]
}

// parseTimestamp parses permissively: strict RFC3339 first, then the
// provider-specific format, then the current time as last resort.
func parseTimestamp(value, providerFormat string) time.Time {
	if value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t
		}
		if providerFormat != "" {
			if t, err := time.Parse(providerFormat, value); err == nil {
				return t
			}
		}
	}
	return time.Now()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
