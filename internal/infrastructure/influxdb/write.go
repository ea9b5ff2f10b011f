package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementEnvironment holds one point per published reading.
const MeasurementEnvironment = "environment"

// WriteReading queues one temperature/humidity point. Non-blocking.
//
//	environment,client_id=STM32L475,thing=BasementSTM32L475 humidity_pct=45.2,temperature_c=21.7
func (c *Client) WriteReading(thing, clientID string, temperature, humidity float64, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newReadingPoint(thing, clientID, temperature, humidity, at))
}

func newReadingPoint(thing, clientID string, temperature, humidity float64, at time.Time) *write.Point {
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		MeasurementEnvironment,
		map[string]string{
			"thing":     thing,
			"client_id": clientID,
		},
		map[string]interface{}{
			"temperature_c": temperature,
			"humidity_pct":  humidity,
		},
		at,
	)
}
