// Package influxdb records replay metrics in InfluxDB.
//
// The Client implements replay.MetricsRecorder:
//
//	replay_step  tags: website_id, action, success   fields: attempts, duration_ms
//	replay_run   tags: website_id, status            fields: total_steps, current_step_index, progress_pct, duration_ms
//
// Points are batched by the influxdb-client-go write API and flushed on
// an interval or when the batch fills. Metrics are optional: Connect
// returns ErrDisabled when influxdb.enabled is false and the engine runs
// without a recorder.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
//	    log.Fatal(err)
//	}
package influxdb
