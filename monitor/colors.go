// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import "image/color"

// Indicator colors.
var (
	Pink  = color.NRGBA{R: 255, G: 20, B: 147, A: 255}
	Cyan  = color.NRGBA{R: 27, G: 255, B: 245, A: 255}
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Off   = color.NRGBA{A: 255}
	Red   = color.NRGBA{R: 255, A: 255}
	Green = color.NRGBA{G: 255, A: 255}
	Blue  = color.NRGBA{B: 255, A: 255}
)

// AmbientColor returns red above hot, blue below cold and green in between,
// thresholds included.
func AmbientColor(celsius, hot, cold float64) color.NRGBA {
	switch {
	case celsius > hot:
		return Red
	case celsius < cold:
		return Blue
	default:
		return Green
	}
}
