//go:build !gpu

package main

import (
	"fmt"

	"github.com/hepamp/ampengine/internal/device"
)

func newGPUExecutor(streams int) (device.Executor, error) {
	return nil, fmt.Errorf("binary built without -tags gpu")
}
