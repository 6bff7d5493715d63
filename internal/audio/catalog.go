package audio

import "fmt"

// Catalog lists capture-capable devices of a host.
type Catalog struct {
	host Host
}

func NewCatalog(host Host) *Catalog {
	return &Catalog{host: host}
}

// ListCaptureDevices queries the host and keeps the devices with input
// channels. A host without capture devices yields an empty list and no error.
func (c *Catalog) ListCaptureDevices() ([]Device, error) {
	devices, err := c.host.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceEnumeration, c.host.Name(), err)
	}

	result := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.CanCapture() {
			result = append(result, d)
		}
	}
	return result, nil
}

// Lookup re-enumerates and returns the capture device with the given ID.
func (c *Catalog) Lookup(id string) (Device, error) {
	devices, err := c.ListCaptureDevices()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.ID == id {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}
