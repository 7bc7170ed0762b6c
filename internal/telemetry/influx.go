package telemetry

import (
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"kickshift/backend/internal/config"
)

const measurement = "gameplay_events"

// InfluxSink writes events as points through the non-blocking write API.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPI
	log    zerolog.Logger
}

func NewInfluxSink(cfg config.InfluxConfig, log zerolog.Logger) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000))
	s := &InfluxSink{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		log:    log,
	}
	go s.drainErrors()
	return s
}

func (s *InfluxSink) drainErrors() {
	for err := range s.writer.Errors() {
		s.log.Error().Err(err).Msg("influx write failed")
	}
}

// Write queues one event. Delivery errors are logged, never returned.
func (s *InfluxSink) Write(ev Event) {
	s.writer.WritePoint(eventPoint(ev))
}

func (s *InfluxSink) Close() {
	s.writer.Flush()
	s.client.Close()
}

func eventPoint(ev Event) *write.Point {
	p := write.NewPointWithMeasurement(measurement).
		AddTag("type", ev.Type).
		AddTag("team", strconv.Itoa(ev.Team)).
		AddTag("match", ev.MatchID).
		AddField("tick", ev.Tick).
		SetTime(time.UnixMilli(ev.OccurredMS))
	if ev.PlayerID != "" {
		p.AddField("player_id", ev.PlayerID)
	}
	for k, v := range ev.Values {
		p.AddField(k, v)
	}
	return p
}
