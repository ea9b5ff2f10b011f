// Package influxdb mirrors sensor readings to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Each published
// reading becomes one point in the "environment" measurement, tagged with
// the thing name and MQTT client id:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("BasementSTM32L475", "STM32L475", 21.7, 45.2, time.Now())
//
// Writes are non-blocking and batched (batch_size, flush_interval). Errors
// from a flush are delivered to the SetOnError callback; the publish loop
// never waits on InfluxDB.
package influxdb
