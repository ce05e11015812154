// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package envmon is an environmental monitor for single-board computers.
//
// A DHT22 (or DHT11, or AM2320) sensor is sampled every two seconds and an
// RGB LED shows red above 30°C, blue below 15°C and green in between. A left
// switch shows pink and a right switch shows cyan for two seconds, each with
// a short tone on a piezo buzzer.
//
// The drivers live in dht, rgbled and buzzer; the loop in monitor; the
// executable in cmd/envmon.
package envmon
