// Package mqtt provides the station's optional broker mirror.
//
// The station is fully functional without a broker; when one is
// configured (mqtt.enabled in config.yaml), this package maintains:
//   - Connection to the broker with auto-reconnect
//   - Retained online/offline presence with Last Will on {prefix}/status
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//
// # Architecture
//
// The broker sits beside the HTTP API as a second control surface,
// aimed at automation controllers rather than the panel:
//
//	Panel ↔ HTTP/WebSocket ↔ Station ↔ MQTT Broker ↔ Automation
//
// State topics (status, station status, fade progress, display state)
// are published retained so a controller that connects mid-fade sees
// the current values immediately. Command topics (lumen/command/fade,
// lumen/command/abort, lumen/command/display) mirror the API's fade and
// display operations.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        // dispatch on topic
//	        return nil
//	    })
//
//	client.PublishRetained(topics.DisplayState(), payload)
//
// The station-side glue (snapshot publishing, command dispatch) lives
// in internal/station's broker mirror; this package stays transport
// only.
package mqtt
