package parser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

// stubAdapter claims everything and returns a scripted result.
type stubAdapter struct {
	id    string
	claim bool
	alert *models.Alert
	err   error
}

func (s *stubAdapter) SourceType() string      { return s.id }
func (s *stubAdapter) CanHandle(_ []byte) bool { return s.claim }
func (s *stubAdapter) ParseAlert(_ []byte) (*models.Alert, error) {
	return s.alert, s.err
}

func validAlert(id string) *models.Alert {
	return &models.Alert{ID: id, Title: "t", Severity: models.SeverityCritical}
}

func TestRegistryFirstClaimWins(t *testing.T) {
	first := &stubAdapter{id: "first", claim: true, alert: validAlert("a-1")}
	second := &stubAdapter{id: "second", claim: true, alert: validAlert("a-2")}
	reg := NewRegistry(first, second)

	alert, err := reg.Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "a-1", alert.ID)
}

func TestRegistryNoFallthroughOnAdapterError(t *testing.T) {
	failing := &stubAdapter{id: "failing", claim: true, err: fmt.Errorf("boom")}
	healthy := &stubAdapter{id: "healthy", claim: true, alert: validAlert("a-2")}
	reg := NewRegistry(failing, healthy)

	alert, err := reg.Parse([]byte(`{}`))
	require.Error(t, err)
	assert.Nil(t, alert)
	assert.True(t, errors.Is(err, pkgerrors.ErrParse))
}

func TestRegistryUnclaimedPayload(t *testing.T) {
	reg := NewRegistry(&stubAdapter{id: "picky", claim: false})

	alert, err := reg.Parse([]byte(`{"unknown":"payload"}`))
	require.Error(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, pkgerrors.KindParse, pkgerrors.KindOf(err))
}

func TestRegistrySkippableEvent(t *testing.T) {
	reg := NewRegistry(&stubAdapter{id: "skipper", claim: true})

	alert, err := reg.Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestRegistryRejectsInvalidAlert(t *testing.T) {
	reg := NewRegistry(&stubAdapter{
		id:    "bad",
		claim: true,
		alert: &models.Alert{ID: "x", Severity: "UNHEARD_OF"},
	})

	_, err := reg.Parse([]byte(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrParse))
}

const cloudwatchSNSPayload = `{
  "Type": "Notification",
  "MessageId": "msg-123",
  "TopicArn": "arn:aws:sns:us-east-1:111122223333:alarms",
  "Timestamp": "2024-03-01T09:15:30.000Z",
  "Message": "{\"AlarmName\":\"HighCPU\",\"AlarmDescription\":\"CPU above threshold\",\"AWSAccountId\":\"111122223333\",\"NewStateValue\":\"ALARM\",\"NewStateReason\":\"Threshold Crossed: 92%\",\"StateChangeTime\":\"2024-03-01T09:15:00.000+0000\",\"Region\":\"US East (N. Virginia)\",\"AlarmArn\":\"arn:aws:cloudwatch:us-east-1:111122223333:alarm:HighCPU\",\"Trigger\":{\"MetricName\":\"CPUUtilization\",\"Namespace\":\"AWS/EC2\",\"Dimensions\":[{\"name\":\"InstanceId\",\"value\":\"i-0abc\"}]}}"
}`

func TestCloudWatchParseAlarmState(t *testing.T) {
	adapter := NewCloudWatchAdapter()
	require.True(t, adapter.CanHandle([]byte(cloudwatchSNSPayload)))

	alert, err := adapter.ParseAlert([]byte(cloudwatchSNSPayload))
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, "HighCPU", alert.Title)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, "cloudwatch", alert.SourceService)
	assert.Equal(t, "Threshold Crossed: 92%", alert.Message)
	assert.Equal(t, "i-0abc", alert.Dimensions["InstanceId"])
	assert.Equal(t, "CPUUtilization", alert.Labels["metricName"])
	assert.Equal(t, "AWS/EC2", alert.Labels["namespace"])
	assert.Equal(t, "111122223333", alert.Labels["accountId"])
	assert.Equal(t, 2024, alert.Timestamp.Year())
}

func TestCloudWatchDeterministicID(t *testing.T) {
	adapter := NewCloudWatchAdapter()

	first, err := adapter.ParseAlert([]byte(cloudwatchSNSPayload))
	require.NoError(t, err)
	second, err := adapter.ParseAlert([]byte(cloudwatchSNSPayload))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Regexp(t, `^cw-[0-9a-f]{16}$`, first.ID)
}

func TestCloudWatchStateMapping(t *testing.T) {
	tests := []struct {
		state    string
		severity models.Severity
		skip     bool
	}{
		{"ALARM", models.SeverityCritical, false},
		{"INSUFFICIENT_DATA", models.SeverityWarning, false},
		{"OK", "", true},
		{"SOMETHING_NEW", models.SeverityInfo, false},
	}
	for _, tc := range tests {
		t.Run(tc.state, func(t *testing.T) {
			severity, skip := mapCloudWatchState(tc.state)
			assert.Equal(t, tc.skip, skip)
			if !tc.skip {
				assert.Equal(t, tc.severity, severity)
			}
		})
	}
}

func TestCloudWatchOKTransitionSkipped(t *testing.T) {
	payload := `{"AlarmName":"HighCPU","NewStateValue":"OK","AlarmArn":"arn:x"}`
	adapter := NewCloudWatchAdapter()

	alert, err := adapter.ParseAlert([]byte(payload))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestCloudWatchBareAlarmDocument(t *testing.T) {
	payload := `{"AlarmName":"DiskFull","NewStateValue":"ALARM","AlarmArn":"arn:aws:cloudwatch:::alarm:DiskFull"}`
	adapter := NewCloudWatchAdapter()
	require.True(t, adapter.CanHandle([]byte(payload)))

	alert, err := adapter.ParseAlert([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, "DiskFull", alert.Title)
}

func TestCloudWatchMalformedDocument(t *testing.T) {
	adapter := NewCloudWatchAdapter()
	_, err := adapter.ParseAlert([]byte(`{"AlarmName":`))
	assert.Error(t, err)
}

const ociFiringPayload = `{
  "dedupeKey": "dedupe-42",
  "title": "High Memory Usage",
  "body": "Memory usage above 90%",
  "type": "OK_TO_FIRING",
  "severity": "CRITICAL",
  "timestampEpochMillis": 1709284500000,
  "alarmMetaData": [{
    "id": "ocid1.alarm.oc1..xyz",
    "status": "FIRING",
    "severity": "CRITICAL",
    "namespace": "oci_computeagent",
    "query": "MemoryUtilization[1m].mean() > 90",
    "dimensions": [{"resourceId": "ocid1.instance.oc1..abc"}]
  }]
}`

func TestOCIParseFiring(t *testing.T) {
	adapter := NewOCIAdapter()
	require.True(t, adapter.CanHandle([]byte(ociFiringPayload)))

	alert, err := adapter.ParseAlert([]byte(ociFiringPayload))
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, "High Memory Usage", alert.Title)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, "oci", alert.SourceService)
	assert.Equal(t, "ocid1.instance.oc1..abc", alert.Dimensions["resourceId"])
	assert.Equal(t, "oci_computeagent", alert.Labels["namespace"])
	assert.Equal(t, int64(1709284500), alert.Timestamp.Unix())
	assert.Regexp(t, `^oci-[0-9a-f]{16}$`, alert.ID)
}

func TestOCIRecoverySkipped(t *testing.T) {
	payload := `{"dedupeKey":"d-1","type":"FIRING_TO_OK","severity":"CRITICAL"}`
	adapter := NewOCIAdapter()

	alert, err := adapter.ParseAlert([]byte(payload))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestOCIUnknownSeverityDegradesToInfo(t *testing.T) {
	payload := `{"dedupeKey":"d-2","type":"REPEAT","severity":"MYSTERY","title":"x"}`
	adapter := NewOCIAdapter()

	alert, err := adapter.ParseAlert(([]byte)(payload))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityInfo, alert.Severity)
}

func TestRegistryRoutesBothSources(t *testing.T) {
	reg := NewRegistry(NewCloudWatchAdapter(), NewOCIAdapter())

	cw, err := reg.Parse([]byte(cloudwatchSNSPayload))
	require.NoError(t, err)
	assert.Equal(t, "cloudwatch", cw.SourceService)

	oci, err := reg.Parse([]byte(ociFiringPayload))
	require.NoError(t, err)
	assert.Equal(t, "oci", oci.SourceService)
}
