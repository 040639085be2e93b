package main

import (
	"context"
	"log"
	"time"
)

// publishWorker is the fixed-period drive loop. Every tick it checks command
// staleness, advances the shaped command, and emits one setpoint per channel.
// The watchdog runs before shaping so a stale target is zeroed before it can
// influence this tick's output. The ticker absorbs per-tick processing time,
// so drift does not accumulate across ticks.
func publishWorker(
	ctx context.Context,
	cfg Config,
	state *CommandState,
	sender *MQTTSender,
) {
	log.Printf("Publish worker started at %.1f Hz (timeout %v, max delta %.4f/tick)\n",
		cfg.Rate, cfg.CommandTimeout(), cfg.MaxCmdDelta())

	timeout := cfg.CommandTimeout()
	maxDelta := cfg.MaxCmdDelta()

	ticker := time.NewTicker(cfg.PublishPeriod())
	defer ticker.Stop()

	wasTimedOut := false

	for {
		select {
		case now := <-ticker.C:
			current, timedOut := state.Tick(now, timeout, maxDelta)

			// Log watchdog edges only, not every stale tick
			if timedOut && !wasTimedOut {
				log.Printf("Command source stale for >%v, ramping to stop\n", timeout)
			} else if !timedOut && wasTimedOut {
				log.Println("Command source recovered")
			}
			wasTimedOut = timedOut

			sender.PublishSetpoint(cfg.LeftTopic(), current.Left, now)
			sender.PublishSetpoint(cfg.RightTopic(), current.Right, now)

		case <-ctx.Done():
			log.Println("Publish worker stopped")
			return
		}
	}
}
