//go:build gpu

package main

import (
	"github.com/hepamp/ampengine/internal/device"
)

func newGPUExecutor(streams int) (device.Executor, error) {
	return device.NewGPUExecutor(streams), nil
}
