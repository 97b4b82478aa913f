package engine

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Marker raises and lowers TTL lines for the scanner's physiology recorder.
type Marker interface {
	Set(lines string)
	Unset(lines string)
}

// DLPIO8G drives a DLP-IO8-G USB box in binary mode.
type DLPIO8G struct {
	port io.ReadWriteCloser
	log  *zap.Logger
}

const pingTimeout = time.Second

func NewDLPIO8G(device string, baudrate int, log *zap.Logger) (*DLPIO8G, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(pingTimeout); err != nil {
		port.Close()
		return nil, err
	}
	d, err := newDLPIO8G(port, log)
	if err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

func newDLPIO8G(port io.ReadWriteCloser, log *zap.Logger) (*DLPIO8G, error) {
	d := &DLPIO8G{port: port, log: log}
	if !d.Ping() {
		return nil, fmt.Errorf("device did not respond to ping correctly")
	}
	// binary mode
	if _, err := port.Write([]byte{0x5C}); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DLPIO8G) Close() error {
	if d.port == nil {
		return nil
	}
	return d.port.Close()
}

// Ping reports whether the box answered the ping. A read that times out
// returns no bytes and fails the ping.
func (d *DLPIO8G) Ping() bool {
	if _, err := d.port.Write([]byte{0x27}); err != nil {
		return false
	}
	buf := make([]byte, 1)
	n, err := d.port.Read(buf)
	return err == nil && n == 1 && buf[0] == 'Q'
}

func (d *DLPIO8G) Set(lines string) {
	if _, err := d.port.Write([]byte(lines)); err != nil {
		d.log.Warn("dlp set failed", zap.String("lines", lines), zap.Error(err))
	}
}

var unsetCodes = map[byte]byte{
	'1': 'Q', '2': 'W', '3': 'E', '4': 'R',
	'5': 'T', '6': 'Y', '7': 'U', '8': 'I',
}

func (d *DLPIO8G) Unset(lines string) {
	cmd := []byte(lines)
	for i, c := range cmd {
		if u, ok := unsetCodes[c]; ok {
			cmd[i] = u
		}
	}
	if _, err := d.port.Write(cmd); err != nil {
		d.log.Warn("dlp unset failed", zap.String("lines", lines), zap.Error(err))
	}
}

type nopMarker struct{}

func (nopMarker) Set(string)   {}
func (nopMarker) Unset(string) {}
