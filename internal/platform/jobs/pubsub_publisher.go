package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/VASILIYKAS/seller-apis/internal/platform/textutil"
	"github.com/VASILIYKAS/seller-apis/internal/services"
)

// PubSubReportPublisher publishes finished run reports to a Pub/Sub topic.
type PubSubReportPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubReportPublisher constructs a Pub/Sub backed run report publisher.
func NewPubSubReportPublisher(topic *pubsub.Topic) (*PubSubReportPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub report publisher: topic is required")
	}
	return &PubSubReportPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishRunReport sends the report as JSON with routing attributes and waits for the server ack.
func (p *PubSubReportPublisher) PublishRunReport(ctx context.Context, report services.RunReport) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub report publisher: not initialised")
	}

	data, err := p.marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal run report: %w", err)
	}

	attrs := textutil.CompactStringMap(map[string]string{
		"runId":          report.RunID,
		"status":         reportStatus(report),
		"dryRun":         strconv.FormatBool(report.DryRun),
		"failedSegments": strings.Join(report.FailedSegments(), ","),
	})

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish run report: %w", err)
	}
	return id, nil
}

func reportStatus(report services.RunReport) string {
	if report.Failed() {
		return "failed"
	}
	return "succeeded"
}
