package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteControlValue records one effective-value change. source tags
// where the change came from (command, master, automation), so
// dashboards can separate user moves from mastering.
func (c *Client) WriteControlValue(controlID string, source string, value float64) {
	if !c.IsConnected() {
		return
	}

	c.writes.WritePoint(write.NewPoint(
		"control_values",
		map[string]string{"control_id": controlID, "source": source},
		map[string]interface{}{"value": value},
		time.Now(),
	))
}

// WriteMasterAssignment records a mastering topology change, letting
// value jumps be correlated with assign and unassign events.
func (c *Client) WriteMasterAssignment(controlID string, masterCount int) {
	if !c.IsConnected() {
		return
	}

	c.writes.WritePoint(write.NewPoint(
		"master_assignments",
		map[string]string{"control_id": controlID},
		map[string]interface{}{"master_count": masterCount},
		time.Now(),
	))
}
