package metricspush

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/studiobook/internal/config"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	ExporterRemoteWrite = "prometheus_remote_write"
	ExporterPushgateway = "prometheus_pushgateway"

	pushTimeout = 5 * time.Second
)

// Pusher ships a registry to a remote collector.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher returns nil when pushing is disabled or misconfigured; the reason is logged.
func NewPusher(cfg config.Config, log *zap.Logger) Pusher {
	if log == nil {
		log = zap.NewNop()
	}
	pushCfg := cfg.MetricsPush
	if !pushCfg.Enabled {
		return nil
	}
	if pushCfg.Endpoint == "" {
		log.Warn("metrics push disabled", zap.Error(errors.New("METRICS_PUSH_ENDPOINT is required")))
		return nil
	}

	switch strings.ToLower(pushCfg.Exporter) {
	case ExporterRemoteWrite:
		if _, err := url.ParseRequestURI(pushCfg.Endpoint); err != nil {
			log.Warn("metrics push disabled", zap.Error(fmt.Errorf("invalid endpoint: %w", err)))
			return nil
		}
		return NewRemoteWritePusher(pushCfg.Endpoint, pushCfg.AuthToken, nil)
	case ExporterPushgateway:
		// service and environment are gauge labels and cannot also be grouping keys.
		return NewPushgatewayPusher(pushCfg.Endpoint, cfg.AppName, map[string]string{
			"instance": fmt.Sprintf("node-%d", cfg.NodeID),
		})
	default:
		log.Warn("metrics push disabled", zap.String("exporter", pushCfg.Exporter))
		return nil
	}
}

// RemoteWritePusher posts counters and gauges using the Prometheus remote_write protocol.
type RemoteWritePusher struct {
	endpoint  string
	authToken string
	client    *http.Client
	now       func() time.Time
}

func NewRemoteWritePusher(endpoint, authToken string, client *http.Client) *RemoteWritePusher {
	if client == nil {
		client = &http.Client{Timeout: pushTimeout}
	}
	return &RemoteWritePusher{
		endpoint:  endpoint,
		authToken: strings.TrimSpace(authToken),
		client:    client,
		now:       time.Now,
	}
}

func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	series := toTimeSeries(families, p.now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	body, err := encodeWriteRequest(series)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write rejected: %s", resp.Status)
	}
	return nil
}

func encodeWriteRequest(series []prompb.TimeSeries) ([]byte, error) {
	raw, err := proto.Marshal(protoadapt.MessageV2Of(&prompb.WriteRequest{Timeseries: series}))
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

// toTimeSeries keeps counters and gauges only; histograms are not pushed.
func toTimeSeries(families []*dto.MetricFamily, timestampMs int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	for _, family := range families {
		for _, m := range family.GetMetric() {
			value, ok := sampleValue(family.GetType(), m)
			if !ok {
				continue
			}
			labels := []prompb.Label{{Name: "__name__", Value: family.GetName()}}
			for _, pair := range m.GetLabel() {
				labels = append(labels, prompb.Label{Name: pair.GetName(), Value: pair.GetValue()})
			}
			sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

			out = append(out, prompb.TimeSeries{
				Labels:  labels,
				Samples: []prompb.Sample{{Value: value, Timestamp: timestampMs}},
			})
		}
	}
	return out
}

func sampleValue(kind dto.MetricType, m *dto.Metric) (float64, bool) {
	switch kind {
	case dto.MetricType_COUNTER:
		if c := m.GetCounter(); c != nil {
			return c.GetValue(), true
		}
	case dto.MetricType_GAUGE:
		if g := m.GetGauge(); g != nil {
			return g.GetValue(), true
		}
	}
	return 0, false
}

// PushgatewayPusher replaces the job's metric group on a Pushgateway.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

func NewPushgatewayPusher(endpoint, job string, grouping map[string]string) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: strings.TrimSpace(endpoint),
		job:      strings.TrimSpace(job),
		grouping: grouping,
	}
}

func (p *PushgatewayPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	if p.endpoint == "" {
		return errors.New("pushgateway endpoint is required")
	}
	if p.job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(gatherer)
	for key, value := range p.grouping {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}
	return pusher.PushContext(ctx)
}
