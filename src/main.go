package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
)

// Guard launches a goroutine with panic recovery. A panic in any worker is
// logged and cancels the shared context: once a worker has failed in an
// unknown way, continuing to publish actuator commands is worse than
// stopping, so the whole process winds down instead of retrying.
func Guard(
	ctx context.Context,
	cancel context.CancelFunc,
	name string,
	fn func(ctx context.Context),
) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in %s: %v\n", name, r)
				cancel()
			}
		}()
		fn(ctx)
	}()
}

func main() {
	log.Println("Starting drivectl...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	// Get MQTT credentials from environment
	mqttUsername := os.Getenv("MQTT_USERNAME")
	mqttPassword := os.Getenv("MQTT_PASSWORD")

	if mqttUsername == "" || mqttPassword == "" {
		log.Fatal("MQTT_USERNAME and MQTT_PASSWORD must be set in .env file")
	}

	// Load drive parameters
	configPath := os.Getenv("DRIVECTL_CONFIG")
	if configPath == "" {
		configPath = "drivectl.toml"
	}
	cfg := LoadConfig(configPath)
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		cfg.MQTT.Broker = broker
	}
	log.Printf("Drive config: namespace=%s rate=%.1fHz min_rate=%.1fHz max_update_rate=%.2f/s\n",
		cfg.Namespace, cfg.Rate, cfg.MinRate, cfg.MaxUpdateRate)

	// Create context for lifecycle management
	ctx, cancel := context.WithCancel(context.Background())

	// Shared state between the ingress callback and the publish loop
	state := NewCommandState(time.Now())

	// Create channels for communication between workers
	mqttOutgoingChan := make(chan MQTTMessage, 100) // Larger buffer for queuing
	mqttClientChan := make(chan mqtt.Client, 1)     // Buffered to prevent blocking onConnect

	// Launch MQTT sender worker (receives client updates via channel)
	Guard(ctx, cancel, "mqtt-sender-worker", func(ctx context.Context) {
		mqttSenderWorker(ctx, mqttOutgoingChan, mqttClientChan)
	})
	log.Println("MQTT sender worker started")

	// Create MQTT sender for workers
	mqttSender := NewMQTTSender(mqttOutgoingChan)

	// Launch publish loop
	Guard(ctx, cancel, "publish-worker", func(ctx context.Context) {
		publishWorker(ctx, cfg, state, mqttSender)
	})
	log.Println("Publish worker started")

	// Launch MQTT worker (hosts the drive command ingress callback)
	Guard(ctx, cancel, "mqtt-worker", func(ctx context.Context) {
		mqttWorker(ctx, cfg, mqttUsername, mqttPassword, state, mqttClientChan)
	})
	log.Println("MQTT worker started")

	// Launch interactive console when requested
	if os.Getenv("DRIVECTL_CONSOLE") == "1" {
		Guard(ctx, cancel, "console-worker", func(ctx context.Context) {
			consoleWorker(ctx, cancel, cfg, state)
		})
		log.Println("Console worker started")
	}

	// Wait for interrupt signal or context cancellation (from panic)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("\nShutting down...")
	case <-ctx.Done():
		log.Println("\nShutting down due to error...")
	}
	cancel()
}
