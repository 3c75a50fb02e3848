// alert-sim publishes synthetic emergency push payloads to the MQTT push
// channel, standing in for the backend's notification fan-out during
// development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type pushPayload struct {
	ID        string  `json:"id"`
	Name      string  `json:"nome"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func main() {
	brokerAddr := flag.String("broker", "tcp://localhost:1883", "MQTT broker address, e.g. tcp://localhost:1883")
	userID := flag.String("user", "user-1", "Target user identifier (push topic owner)")
	senderName := flag.String("sender", "Maria", "Sender display name carried in the payload")
	latitude := flag.Float64("lat", -23.5505, "Alert latitude")
	longitude := flag.Float64("lng", -46.6333, "Alert longitude")
	respond := flag.Bool("respond", false, "Also publish to the responded topic, simulating a notification tap")
	interval := flag.Duration("interval", 0, "Repeat interval; zero publishes once and exits")

	flag.Parse()

	clientID := fmt.Sprintf("alert-simulator-%d", time.Now().UnixNano())
	opts := mqtt.NewClientOptions().AddBroker(*brokerAddr).SetClientID(clientID)
	opts = opts.SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect to broker: %v", token.Error())
	}
	log.Printf("connected to MQTT broker %s as %s", *brokerAddr, clientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publish := func() {
		payload := pushPayload{
			ID:        uuid.NewString(),
			Name:      *senderName,
			Latitude:  *latitude,
			Longitude: *longitude,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("failed to encode payload: %v", err)
			return
		}

		topics := []string{fmt.Sprintf("push/%s/received", *userID)}
		if *respond {
			topics = append(topics, fmt.Sprintf("push/%s/responded", *userID))
		}

		for _, topic := range topics {
			token := client.Publish(topic, 0, false, data)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("publish error: %v", err)
				return
			}
			log.Printf("published %s sender=%s", topic, payload.Name)
		}
	}

	publish()

	if *interval <= 0 {
		client.Disconnect(250)
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Print("received shutdown signal, disconnecting")
			client.Disconnect(250)
			return
		case <-ticker.C:
			publish()
		}
	}
}
