// Package mqtt connects the control core to its surfaces over an MQTT
// broker.
//
// Surfaces (fader boxes, tablets, OSC gateways) publish commands under
// ardour/command and receive authoritative state under ardour/core.
// The client reconnects on its own, replays subscriptions after a
// reconnect, and leaves a retained will on ardour/system/status so
// surfaces can tell a crashed core from one that shut down cleanly.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Subscribe(mqtt.Topics{}.AllControlCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return dispatch(topic, payload)
//	    })
package mqtt
