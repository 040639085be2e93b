package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectMessages(t *testing.T, ch <-chan MQTTMessage, n int) []MQTTMessage {
	t.Helper()
	msgs := make([]MQTTMessage, 0, n)
	for len(msgs) < n {
		select {
		case msg := <-ch:
			msgs = append(msgs, msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d of %d", len(msgs)+1, n)
		}
	}
	return msgs
}

func decodeSetpoint(t *testing.T, msg MQTTMessage) Setpoint {
	t.Helper()
	var sp Setpoint
	require.NoError(t, json.Unmarshal(msg.Payload, &sp))
	return sp
}

func TestPublishWorker_EmitsBothChannelsEveryTick(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rate = 200 // fast ticks so the test finishes quickly

	state := NewCommandState(time.Now())
	outgoing := make(chan MQTTMessage, 100)
	sender := NewMQTTSender(outgoing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publishWorker(ctx, cfg, state, sender)

	msgs := collectMessages(t, outgoing, 6)

	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, cfg.LeftTopic(), msgs[i].Topic)
		assert.Equal(t, cfg.RightTopic(), msgs[i+1].Topic)

		left := decodeSetpoint(t, msgs[i])
		right := decodeSetpoint(t, msgs[i+1])

		// At rest with no command, both channels publish zero
		assert.Equal(t, 0.0, left.Value)
		assert.Equal(t, 0.0, right.Value)
		assert.Equal(t, left.Timestamp, right.Timestamp, "channel pair shares one tick timestamp")
	}

	// Tick timestamps never go backwards
	for i := 2; i < len(msgs); i += 2 {
		prev := decodeSetpoint(t, msgs[i-2])
		cur := decodeSetpoint(t, msgs[i])
		assert.False(t, cur.Timestamp.Before(prev.Timestamp))
	}
}

func TestPublishWorker_RampIsSlewLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rate = 200
	cfg.MinRate = 0.5 // generous timeout so the single command stays fresh

	state := NewCommandState(time.Now())
	state.SetTarget(DriveCommand{Left: 1, Right: 1}, time.Now())

	outgoing := make(chan MQTTMessage, 200)
	sender := NewMQTTSender(outgoing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publishWorker(ctx, cfg, state, sender)

	msgs := collectMessages(t, outgoing, 20)

	maxDelta := cfg.MaxCmdDelta()
	prev := 0.0
	for i := 0; i < len(msgs); i += 2 {
		left := decodeSetpoint(t, msgs[i]).Value

		assert.GreaterOrEqual(t, left, prev, "ramp must not reverse")
		assert.LessOrEqual(t, left-prev, maxDelta+1e-9, "per-tick step exceeds slew bound")
		assert.LessOrEqual(t, left, 1.0, "ramp must not overshoot")
		prev = left
	}
	assert.Greater(t, prev, 0.0, "ramp should have moved off zero")
}

func TestPublishWorker_StopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rate = 200

	state := NewCommandState(time.Now())
	outgoing := make(chan MQTTMessage, 100)
	sender := NewMQTTSender(outgoing)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		publishWorker(ctx, cfg, state, sender)
		close(done)
	}()

	collectMessages(t, outgoing, 2)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish worker did not stop on cancellation")
	}
}
