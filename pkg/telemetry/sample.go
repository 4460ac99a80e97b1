// Package telemetry converts link packets into samples and publishes
// them to the host side transports.
package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/wonder.go/pkg/link"
)

// Kind is the type of a Sample.
type Kind string

// Sample kinds.
const (
	KindGyro  Kind = "gyro"
	KindMag   Kind = "mag"
	KindAlert Kind = "alert"
)

// Packet codes on the link.
const (
	CodeGyro  byte = 1
	CodeMag   byte = 2
	CodeAlert byte = 3
)

// ErrShortPacket indicates a packet with less data than its code needs.
var ErrShortPacket = errors.New("short packet")

// UnknownCodeError is returned for packets with an unsupported code.
type UnknownCodeError struct {
	Code byte
}

// Error implements error.
func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown packet code %d", e.Code)
}

// Sample is one sensor reading. Board and Time are filled in on the
// host when the packet arrives.
type Sample struct {
	Board   string
	Kind    Kind
	X, Y, Z int16
	Temp    int8
	Time    time.Time
}

// Packet returns the link code and payload of s.
func (s *Sample) Packet() (code byte, data []byte) {
	switch s.Kind {
	case KindGyro:
		data = make([]byte, 7)
		putAxes(data, s.X, s.Y, s.Z)
		data[6] = byte(s.Temp)
		return CodeGyro, data
	case KindMag:
		data = make([]byte, 6)
		putAxes(data, s.X, s.Y, s.Z)
		return CodeMag, data
	default:
		data = make([]byte, 2)
		binary.BigEndian.PutUint16(data, uint16(s.X))
		return CodeAlert, data
	}
}

func putAxes(data []byte, x, y, z int16) {
	binary.BigEndian.PutUint16(data[0:], uint16(x))
	binary.BigEndian.PutUint16(data[2:], uint16(y))
	binary.BigEndian.PutUint16(data[4:], uint16(z))
}

func axis(data []byte, n int) int16 {
	return int16(binary.BigEndian.Uint16(data[n*2:]))
}

// FromPacket decodes a link packet.
func FromPacket(pkt *link.Packet) (*Sample, error) {
	var s Sample
	switch pkt.Code {
	case CodeGyro:
		if len(pkt.Data) < 7 {
			return nil, ErrShortPacket
		}
		s.Kind, s.X, s.Y, s.Z = KindGyro, axis(pkt.Data, 0), axis(pkt.Data, 1), axis(pkt.Data, 2)
		s.Temp = int8(pkt.Data[6])
	case CodeMag:
		if len(pkt.Data) < 6 {
			return nil, ErrShortPacket
		}
		s.Kind, s.X, s.Y, s.Z = KindMag, axis(pkt.Data, 0), axis(pkt.Data, 1), axis(pkt.Data, 2)
	case CodeAlert:
		if len(pkt.Data) < 2 {
			return nil, ErrShortPacket
		}
		s.Kind, s.X = KindAlert, axis(pkt.Data, 0)
	default:
		return nil, &UnknownCodeError{Code: pkt.Code}
	}
	return &s, nil
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(v string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: v}}
}

// Struct converts s into a protobuf Struct.
func (s *Sample) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"board": stringValue(s.Board),
		"kind":  stringValue(string(s.Kind)),
		"x":     numberValue(float64(s.X)),
		"y":     numberValue(float64(s.Y)),
		"z":     numberValue(float64(s.Z)),
		"temp":  numberValue(float64(s.Temp)),
		"time":  stringValue(s.Time.UTC().Format(time.RFC3339Nano)),
	}}
}

// Encode marshals s as a protobuf Struct.
func Encode(s *Sample) ([]byte, error) {
	return proto.Marshal(s.Struct())
}

// Decode unmarshals a payload produced by Encode.
func Decode(payload []byte) (*Sample, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(payload, &st); err != nil {
		return nil, err
	}
	fields := st.GetFields()
	s := &Sample{
		Board: fields["board"].GetStringValue(),
		Kind:  Kind(fields["kind"].GetStringValue()),
		X:     int16(fields["x"].GetNumberValue()),
		Y:     int16(fields["y"].GetNumberValue()),
		Z:     int16(fields["z"].GetNumberValue()),
		Temp:  int8(fields["temp"].GetNumberValue()),
	}
	if ts := fields["time"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		s.Time = t
	}
	return s, nil
}

// String formats s for logs.
func (s *Sample) String() string {
	switch s.Kind {
	case KindGyro:
		return fmt.Sprintf("%s gyro x=%d y=%d z=%d temp=%d", s.Board, s.X, s.Y, s.Z, s.Temp)
	case KindMag:
		return fmt.Sprintf("%s mag x=%d y=%d z=%d", s.Board, s.X, s.Y, s.Z)
	}
	return fmt.Sprintf("%s %s x=%d", s.Board, s.Kind, s.X)
}
