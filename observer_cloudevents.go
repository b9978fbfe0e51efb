package gogine

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// NewCloudEvent builds a lifecycle event with a time-ordered ID. The event
// is returned without data when data cannot be encoded as JSON.
func NewCloudEvent(eventType, source string, data any, extensions map[string]any) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()

	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	for key, value := range extensions {
		event.SetExtension(key, value)
	}

	if data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
			return event, fmt.Errorf("encode %s event data: %w", eventType, err)
		}
	}

	return event, nil
}

// generateEventID prefers UUIDv7 so IDs sort by creation time
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent checks event against the CloudEvents specification
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return nil
}
