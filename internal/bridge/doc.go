// Package bridge connects a session to MQTT control surfaces.
//
// The bridge publishes authoritative control state (effective values
// and master assignments) as retained messages, so surfaces synchronise
// on connect, and applies inbound surface commands to the session. It
// also fans every observed change out to the history repository and the
// time-series database when those are wired.
package bridge
