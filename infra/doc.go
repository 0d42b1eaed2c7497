// Package infra holds the adapters behind the core interfaces: the MQTT
// notifier and crew simulator, metrics sinks, Sentry monitoring, zerolog
// logging and the plain-text data files.
package infra
