package serial

import (
	"fmt"
	"io"
	"sync"

	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// openPort is the production openFunc: it opens the named device in 8N1
// framing at the given baud rate. The returned handle tolerates a double
// Close, which the supervisor relies on during shutdown.
func openPort(device string, baud int) (io.ReadCloser, error) {
	port, err := bugst.Open(device, &bugst.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	return &oncePort{port: port}, nil
}

// enumeratePorts is the production enumerateFunc, backed by the platform
// port enumerator with USB descriptor metadata.
func enumeratePorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
		})
	}
	return out, nil
}

// oncePort makes Close idempotent. The supervisor closes on the fault path
// and a context hook closes on shutdown; whichever runs second is a no-op.
type oncePort struct {
	port bugst.Port
	once sync.Once
	err  error
}

func (p *oncePort) Read(b []byte) (int, error) { return p.port.Read(b) }

func (p *oncePort) Close() error {
	p.once.Do(func() { p.err = p.port.Close() })
	return p.err
}
