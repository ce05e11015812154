// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht provides drivers for the AOSONG family of temperature/humidity
// sensors.
//
// The DHT11 and DHT22 (AM2302) talk a proprietary single-wire protocol on one
// GPIO pin. The host pulls the line low to request a sample, then the sensor
// answers with 40 bits where the length of each high pulse encodes the bit
// value. Timing is done by polling the pin, so a read may occasionally fail
// on a loaded system; use Opts.Retries.
//
// The AM2320 is the I²C member of the family and shares the DHT22 data
// format.
//
// Both Dev and AM2320 implement physic.SenseEnv. Pressure is never set.
//
// # Datasheets
//
// https://cdn-shop.adafruit.com/datasheets/Digital+humidity+and+temperature+sensor+AM2302.pdf
//
// https://cdn-shop.adafruit.com/product-files/3721/AM2320.pdf
package dht
