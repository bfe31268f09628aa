// Package mqtt bridges the display onto an MQTT broker.
//
// Topics, all under the configured prefix:
//
//	<prefix>/command   commands in the TCP wire format (subscribed)
//	<prefix>/response  the reply line for each command, without the newline
//	<prefix>/state     retained pixel snapshot after every change
//	<prefix>/status    retained online/offline status, offline is also the LWT
//
// The broker connection retries in the background, so an unreachable broker
// does not stop the service.
package mqtt
