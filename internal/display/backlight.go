package display

import (
	"fmt"
	"runtime"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Backlight abstracts panel backlight control so the sink works both on
// the Raspberry Pi (GPIO-driven panel enable pin) and on development
// machines (no-op).
type Backlight interface {
	Set(on bool) error
}

// noopBacklight is the off-Pi fallback.
type noopBacklight struct{}

func (noopBacklight) Set(bool) error { return nil }

// gpioBacklight drives a single output pin through periph.io.
type gpioBacklight struct {
	pin gpio.PinOut
}

func (g *gpioBacklight) Set(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := g.pin.Out(level); err != nil {
		return fmt.Errorf("display: backlight pin: %w", err)
	}
	return nil
}

// NewBacklight returns a GPIO-backed Backlight for pinName (e.g.
// "GPIO18"), falling back to a no-op when the host has no such pin or
// periph cannot initialize. Priority mirrors the hardware-else-mock
// pattern used elsewhere in this codebase.
func NewBacklight(pinName string) Backlight {
	if pinName == "" || runtime.GOOS != "linux" {
		return noopBacklight{}
	}
	if _, err := host.Init(); err != nil {
		return noopBacklight{}
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return noopBacklight{}
	}
	return &gpioBacklight{pin: pin}
}
