// Package logging wraps log/slog for the control core.
//
// New builds a logger from config.yaml (level, json or text format,
// stdout or stderr); Default covers startup before config is
// available. Every line carries service and version, and components
// attach their own fields through With:
//
//	log := logging.New(cfg.Logging, version)
//	bridgeLog := log.With("component", "bridge")
//	bridgeLog.Info("subscribed", "topic", topic)
package logging
