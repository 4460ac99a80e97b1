package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/wonder.go/pkg/link"
)

func TestSamplePacket(t *testing.T) {
	testCases := []struct {
		name   string
		sample Sample
		code   byte
		data   []byte
	}{
		{"gyro", Sample{Kind: KindGyro, X: 1, Y: -1, Z: 0x1234, Temp: -5}, CodeGyro,
			[]byte{0, 1, 0xff, 0xff, 0x12, 0x34, 0xfb}},
		{"mag", Sample{Kind: KindMag, X: -2, Y: 3, Z: 4}, CodeMag,
			[]byte{0xff, 0xfe, 0, 3, 0, 4}},
		{"alert", Sample{Kind: KindAlert, X: 20001}, CodeAlert,
			[]byte{0x4e, 0x21}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, data := tc.sample.Packet()
			require.Equal(t, tc.code, code)
			require.Equal(t, tc.data, data)
			s, err := FromPacket(&link.Packet{Code: code, Data: data})
			require.NoError(t, err)
			require.Equal(t, tc.sample, *s)
		})
	}
}

func TestFromPacketErrors(t *testing.T) {
	_, err := FromPacket(&link.Packet{Code: CodeGyro, Data: []byte{1, 2}})
	require.Equal(t, ErrShortPacket, err)
	_, err = FromPacket(&link.Packet{Code: 9})
	var unknown *UnknownCodeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, byte(9), unknown.Code)
}

func TestEncodeDecode(t *testing.T) {
	s := &Sample{
		Board: "b1",
		Kind:  KindGyro,
		X:     -300, Y: 2, Z: 32767,
		Temp: 25,
		Time: time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC),
	}
	payload, err := Encode(s)
	require.NoError(t, err)
	decoded, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, s.Board, decoded.Board)
	require.Equal(t, s.Kind, decoded.Kind)
	require.Equal(t, [3]int16{s.X, s.Y, s.Z}, [3]int16{decoded.X, decoded.Y, decoded.Z})
	require.Equal(t, s.Temp, decoded.Temp)
	require.True(t, s.Time.Equal(decoded.Time))
	require.Equal(t, "b1 gyro x=-300 y=2 z=32767 temp=25", decoded.String())
}

func TestBridge(t *testing.T) {
	var payloads [][]byte
	failing := WritePacketFunc(func([]byte) error { return errors.New("offline") })
	collect := WritePacketFunc(func(pkt []byte) error {
		payloads = append(payloads, pkt)
		return nil
	})
	mock := clock.NewMock()
	b := NewBridge("b1", collect, failing)
	b.Clock = mock

	ctx := context.Background()
	b.HandlePacket(ctx, &link.Packet{Seq: 1, Code: CodeMag, Data: []byte{0, 1, 0, 2, 0, 3}})
	b.HandlePacket(ctx, &link.Packet{Seq: 2, Code: 0x0e})
	b.HandlePacket(ctx, &link.Packet{Seq: 3, Code: CodeAlert, Data: []byte{0}})

	require.Equal(t, BridgeStats{Samples: 1, Dropped: 2, WriteErrors: 1}, b.Stats())
	require.Len(t, payloads, 1)
	s, err := Decode(payloads[0])
	require.NoError(t, err)
	require.Equal(t, "b1", s.Board)
	require.Equal(t, KindMag, s.Kind)
	require.Equal(t, int16(3), s.Z)
	require.True(t, mock.Now().Equal(s.Time))
}
