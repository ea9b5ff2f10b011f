// Package sensor reads the node's temperature and humidity sensors.
//
// Two drivers are provided:
//   - iio: Linux Industrial I/O sysfs attributes, as exposed by the
//     HTS221, SHT3x and HDC families. Raw values are milli-units and are
//     multiplied by a configurable scale.
//   - simulated: fixed base values with bounded random jitter, for
//     development machines without the hardware.
//
// Reads block until the value is available. Neither driver retries.
package sensor
