// Package mqtt connects Autofill Core to an MQTT broker.
//
// The broker carries two kinds of traffic:
//
//	autofill/run/{website_id}/{event}      run progress published by the replay engine
//	autofill/command/run/{website_id}      remote requests to start a replay
//
// plus a retained autofill/system/status online/offline marker backed by a
// Last Will and Testament.
//
// The client reconnects automatically and restores its subscriptions after
// every reconnect.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllRunCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
//
// Run variables travel inside command payloads; use TLS (broker.tls) when
// the broker is not on the same host.
package mqtt
