package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// mqttWorker manages the MQTT connection, hosts the drive command ingress
// callback, and hands the live client to the sender worker.
func mqttWorker(
	ctx context.Context,
	cfg Config,
	username, password string,
	state *CommandState,
	clientChan chan<- mqtt.Client,
) {
	broker := cfg.MQTT.Broker

	// Connect to MQTT broker
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, cfg.MQTT.Port))
	opts.SetClientID("drivectl-" + uuid.NewString())
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	// Broker reports us offline if the connection drops without a clean disconnect
	opts.SetWill(cfg.StatusTopic(), "offline", 1, true)

	// Set up connection lost handler
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v\n", err)
	})

	// Set up connection handler
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker at %s\n", broker)

		// Send the new client to the sender worker
		select {
		case clientChan <- client:
			log.Println("Sent new MQTT client to sender worker")
		case <-ctx.Done():
			return
		}

		client.Publish(cfg.StatusTopic(), 1, true, "online")

		// Ingress path: decode and overwrite the shared target in the
		// callback itself. No queue; last write wins, which is fine because
		// only the latest target matters.
		topic := cfg.CommandTopic()
		token := client.Subscribe(topic, 0, func(client mqtt.Client, msg mqtt.Message) {
			var cmd DriveCommand
			if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
				log.Printf("Dropping malformed drive command: %v\n", err)
				return
			}
			state.SetTarget(cmd, time.Now())
		})

		if token.Wait() && token.Error() != nil {
			log.Printf("Failed to subscribe to topic %s: %v\n", topic, token.Error())
		} else {
			log.Printf("Subscribed to topic: %s\n", topic)
		}
	})

	client := mqtt.NewClient(opts)

	// Connect to broker
	log.Printf("Connecting to MQTT broker at %s...\n", broker)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("Failed to connect to MQTT broker: %v\n", token.Error())
		return
	}

	// Keep worker alive until context is done
	<-ctx.Done()

	// Cleanup
	if client.IsConnected() {
		client.Publish(cfg.StatusTopic(), 1, true, "offline")
		client.Disconnect(250)
		log.Println("Disconnected from MQTT broker")
	}
}
