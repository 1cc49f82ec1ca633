package nn

import (
	"os"

	"golang.org/x/xerrors"
)

/*
Device is a logical execution target for network computation
*/
type Device struct {
	ID          string
	Accelerated bool
}

var (
	// CPU is the general-purpose fallback device, always available.
	CPU = Device{ID: "cpu:0"}
	// GPU is the default accelerated device.
	GPU = Device{ID: "gpu:0", Accelerated: true}
)

/*
ErrAcceleratorInternal reports an internal failure of the accelerated
backend during network placement. It is the only failure callers are
expected to recover from (by falling back to CPU).
*/
var ErrAcceleratorInternal = xerrors.New("accelerator internal error")

/*
GPUAvailable reports whether an accelerated device is advertised.
The pure-Go compute backend has no device discovery of its own, so the
accelerated target is announced through DEFECTDETECT_GPU.
*/
func GPUAvailable() bool {
	return os.Getenv("DEFECTDETECT_GPU") != ""
}

/*
Place binds the network to a device. Placing on an accelerated device
fails with ErrAcceleratorInternal when the backend rejects initialization
(forced through DEFECTDETECT_GPU_FAULT).
*/
func (n *Sequential) Place(dev Device) error {
	if dev.Accelerated {
		if fault := os.Getenv("DEFECTDETECT_GPU_FAULT"); fault != "" {
			return xerrors.Errorf("placing network on %s: %s: %w", dev.ID, fault, ErrAcceleratorInternal)
		}
	}
	n.device = dev
	return nil
}

/*
Device returns the device the network is currently placed on
*/
func (n *Sequential) Device() Device {
	return n.device
}
