package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/robotalks/rtio.go/pkg/telemetry/mqtt"
	"github.com/robotalks/rtio.go/pkg/telemetry/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/rtio/"
	wsURL   string
	filter  = "#"
)

func init() {
	if val := os.Getenv("RTIO_TELEMETRY_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&wsURL, "ws", wsURL, "Websocket telemetry URL, e.g. ws://robot:8080/telemetry, instead of MQTT.")
	flag.StringVar(&filter, "topic", filter, "MQTT topic filter.")
}

func printPacket(source string, payload []byte) {
	typed, err := msgs.DecodeTyped(payload)
	if err != nil {
		log.Printf("%s: bad message: %v", source, err)
		return
	}
	msg, err := typed.Decode()
	if err != nil {
		log.Printf("%s: decode error: (type_id=%x) %v", source, typed.TypeId, err)
		return
	}
	log.Printf("%s: [%s@%s] %s", source,
		reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), typed.Node,
		msg.(msgs.SerializableMessage).Serializable().String())
}

func monitorWebsocket() {
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		log.Fatalln(err)
	}
	defer conn.Close()
	for {
		var payload []byte
		if err := websocket.Message.Receive(conn, &payload); err != nil {
			log.Fatalln(err)
		}
		printPacket(wsURL, payload)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	if wsURL != "" {
		monitorWebsocket()
		return
	}

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	q.Sub(filter, mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") && len(payload) == 0 {
			log.Printf("%s: offline", topic)
			return
		}
		printPacket(topic, payload)
	}))
	<-(chan struct{})(nil)
}
