// Package influxdb stores control telemetry as time series: effective
// value changes tagged by origin, and mastering topology changes.
//
// Writes go through the v2 client's batched non-blocking API, sized by
// config.yaml (batch_size, flush_interval). Batch failures surface
// through the SetOnError callback rather than on the write call.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteControlValue("ctl-1f0a", "command", 0.75)
package influxdb
