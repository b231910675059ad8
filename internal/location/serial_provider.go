package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialProvider reads NMEA sentences from a GPS receiver on a serial port.
type SerialProvider struct {
	opts serial.OpenOptions
}

// NewSerialProvider creates a provider for the receiver on portName.
func NewSerialProvider(portName string, baudRate int) *SerialProvider {
	return &SerialProvider{opts: serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}}
}

func (p *SerialProvider) open() (io.ReadWriteCloser, error) {
	port, err := serial.Open(p.opts)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %v", ErrPermissionDenied, p.opts.PortName, err)
		}
		return nil, fmt.Errorf("location: open %s: %w", p.opts.PortName, err)
	}
	return port, nil
}

// RequestPermission checks that the port can be opened.
func (p *SerialProvider) RequestPermission(ctx context.Context) error {
	port, err := p.open()
	if err != nil {
		return err
	}
	return port.Close()
}

// Current waits for the next valid RMC fix.
func (p *SerialProvider) Current(ctx context.Context) (Fix, error) {
	return firstFix(ctx, p)
}

// Watch opens the port and delivers fixes until stopped. Closing the port
// is what unblocks the reader on Stop.
func (p *SerialProvider) Watch(ctx context.Context, opts WatchOptions, deliver func(Fix), onErr func(error)) (Subscription, error) {
	port, err := p.open()
	if err != nil {
		return nil, err
	}
	log.Printf("location: serial port opened on %s at %d baud", p.opts.PortName, p.opts.BaudRate)

	ctx, cancel := context.WithCancel(ctx)
	th := &throttle{opts: opts}

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	go func() {
		err := ReadNMEA(port, func(f Fix) {
			if ctx.Err() != nil || !th.allow(f) {
				return
			}
			deliver(f)
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		log.Printf("location: GPS read error: %v", err)
		cancel()
		if onErr != nil {
			onErr(err)
		}
	}()

	return &cancelSubscription{cancel: cancel}, nil
}
