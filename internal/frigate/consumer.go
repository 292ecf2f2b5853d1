package frigate

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatewatch/gatewatch-go/internal/attendance"
	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/faceid"
	"github.com/gatewatch/gatewatch-go/internal/logging"
	"github.com/gatewatch/gatewatch-go/internal/mqtt"
)

// Consumer receives Frigate events over MQTT, persists them and routes
// person detections into the attendance pipeline. The MQTT client delivers
// messages for one subscription in order, so events for one tracked object
// reach the debouncer in arrival order.
type Consumer struct {
	settings   *conf.Settings
	ds         datastore.Interface
	attendance *attendance.Service
	identities *faceid.Tracker
	log        *slog.Logger
}

// NewConsumer wires a consumer. identities may be nil, in which case a
// noop-backed tracker is used.
func NewConsumer(settings *conf.Settings, ds datastore.Interface, svc *attendance.Service, identities *faceid.Tracker) *Consumer {
	log := logging.ForService("frigate")
	if log == nil {
		log = slog.Default().With("service", "frigate")
	}
	if identities == nil {
		identities = faceid.NewTracker(nil, log)
	}
	return &Consumer{
		settings:   settings,
		ds:         ds,
		attendance: svc,
		identities: identities,
		log:        log,
	}
}

// Subscribe attaches the consumer to the configured events topic.
func (c *Consumer) Subscribe(client mqtt.Client) error {
	return client.Subscribe(c.settings.Realtime.MQTT.Topic, c.HandleMessage)
}

// HandleMessage is the MQTT callback. Processing failures are logged, not
// returned: the broker redelivers nothing on QoS 0 and the debounce markers
// keep retried counts idempotent anyway.
func (c *Consumer) HandleMessage(topic string, payload []byte) {
	if err := c.process(context.Background(), payload); err != nil {
		c.log.Error("failed to process event", "topic", topic, "error", err)
	}
}

func (c *Consumer) process(ctx context.Context, payload []byte) error {
	event, err := Decode(payload)
	if err != nil {
		return err
	}
	if event.Incomplete() {
		c.log.Debug("skipping incomplete event")
		return nil
	}
	after := event.After

	raw := &datastore.RawEvent{
		Time:     time.Now(),
		Source:   Source,
		CameraID: after.Camera,
		Payload:  string(payload),
	}
	if err := c.ds.SaveRawEvent(raw); err != nil {
		return err
	}

	// "end" closes the track upstream; zone exits are signaled earlier by
	// current_zones, so attendance never acts on it.
	if event.Type == EventTypeEnd {
		if after.Label == attendance.ObjectTypePerson && after.ID != "" {
			c.identities.Forget(after.ID)
		}
		return nil
	}
	if event.Type != EventTypeNew && event.Type != EventTypeUpdate {
		c.log.Debug("ignoring event type", "type", event.Type)
		return nil
	}

	if err := c.ds.SaveDetection(event.Detection()); err != nil {
		return err
	}

	if after.Label != attendance.ObjectTypePerson {
		return nil
	}

	detectionEvent := event.DetectionEvent()
	if detectionEvent.FallbackID {
		c.log.Debug("event without tracker id, minted fallback",
			"detection_id", detectionEvent.DetectionID, "camera", after.Camera)
	}

	if event.Type == EventTypeNew {
		name := c.identities.IdentifyOnce(ctx, detectionEvent.DetectionID)
		c.log.Debug("person track opened",
			"detection_id", detectionEvent.DetectionID, "identity", name)
	}

	return c.attendance.ProcessEvent(ctx, detectionEvent)
}
