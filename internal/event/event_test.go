package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesAreKeyedByDonation(t *testing.T) {
	donationID := uuid.New()
	e := Event{
		Type:       TypeAccepted,
		RequestID:  uuid.New(),
		DonationID: donationID,
		Status:     "accepted",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msgs, err := Messages(e)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, donationID.String(), string(msgs[0].Key))
	assert.Equal(t, "type", msgs[0].Headers[0].Key)
	assert.Equal(t, TypeAccepted, string(msgs[0].Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Value, &decoded))
	assert.Equal(t, TypeAccepted, decoded["type"])
	assert.NotContains(t, decoded, "sender_otp")
	assert.NotContains(t, decoded, "collector_id")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeCreated}))
	assert.NoError(t, p.Close())
}
