// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgbled

import (
	"bytes"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// ConsoleOpts represents the options for the console emulator.
type ConsoleOpts struct {
	// Width is the number of blocks drawn. Default is 4.
	Width int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer
}

// Console emulates the indicator with ANSI color codes. Useful while running
// the monitor on a machine without the LED wired.
type Console struct {
	w       io.Writer
	width   int
	palette ansi256.Palette

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewConsole returns a Console. The opts can be nil.
func NewConsole(opts *ConsoleOpts) *Console {
	if opts == nil {
		opts = &ConsoleOpts{}
	}
	c := &Console{w: opts.W, width: opts.Width, palette: *ansi256.Default}
	if opts.Palette != nil {
		c.palette = *opts.Palette
	}
	if c.w == nil {
		c.w = colorable.NewColorableStdout()
	}
	if c.width <= 0 {
		c.width = 4
	}
	return c
}

func (c *Console) String() string {
	return "Console"
}

// Set implements Setter. The line is redrawn in place.
func (c *Console) Set(col color.NRGBA) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	col.A = 255
	c.buf.Reset()
	_, _ = c.buf.WriteString("\r\033[0m")
	for i := 0; i < c.width; i++ {
		_, _ = io.WriteString(&c.buf, c.palette.Block(col))
	}
	_, _ = c.buf.WriteString("\033[0m ")
	_, err := c.buf.WriteTo(c.w)
	return err
}

// Halt implements conn.Resource.
//
// It ends the line and resets the terminal colors.
func (c *Console) Halt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write([]byte("\n\033[0m"))
	return err
}

var _ Setter = &Console{}
