// Package mqtt connects Smart Lighting Core to an MQTT broker.
//
// The broker is an optional second ingestion path: the lamp controller may
// publish readings to <prefix>/device/log instead of calling
// POST /api/device/log. Configuration still travels over HTTP.
//
// The client keeps a retained presence document on <prefix>/system/status.
// It is "online" after each connect and "offline" with reason
// graceful_shutdown on Close. The broker publishes the
// unexpected_disconnect will if the process dies.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package mqtt
