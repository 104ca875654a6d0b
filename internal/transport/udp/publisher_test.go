// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"pulse/internal/render"
)

type fixedState render.State

func (f fixedState) Snapshot() render.State { return render.State(f) }

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublisherSendsState(t *testing.T) {
	server := listen(t)
	sender, err := NewUDPSender(server.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender error: %v", err)
	}

	state := fixedState{BPM: 128, Volume: 0.5, Theta: 1.25, Lens: 0.573, Sign: -1, Accuracy: 0.75}
	pub, err := NewUDPPublisher(5*time.Millisecond, sender, state, nil)
	if err != nil {
		t.Fatalf("NewUDPPublisher error: %v", err)
	}
	pub.Start()
	pub.Start() // no-op
	defer pub.Close()

	buf := make([]byte, 1500)
	for want := uint32(1); want <= 2; want++ {
		server.SetReadDeadline(time.Now().Add(5 * time.Second))
		n, _, err := server.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("ReadFromUDP error: %v", err)
		}
		pkt, err := DecodePacket(buf[:n])
		if err != nil {
			t.Fatalf("DecodePacket error: %v", err)
		}
		if pkt.Sequence != want {
			t.Errorf("Sequence = %d, want %d", pkt.Sequence, want)
		}
		if pkt.BPM != 128 || pkt.Volume != 0.5 || pkt.Theta != 1.25 || pkt.Sign != -1 || pkt.Accuracy != 0.75 {
			t.Errorf("decoded %+v", pkt)
		}
		if pkt.Lens != float32(0.573) {
			t.Errorf("Lens = %v", pkt.Lens)
		}
		if age := time.Since(time.Unix(0, pkt.Timestamp)); age < 0 || age > 5*time.Second {
			t.Errorf("Timestamp is %v old", age)
		}
	}
}

func TestPublisherStopIdempotent(t *testing.T) {
	server := listen(t)
	sender, err := NewUDPSender(server.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	pub, err := NewUDPPublisher(0, sender, fixedState{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pub.interval != 33*time.Millisecond {
		t.Errorf("default interval = %v", pub.interval)
	}

	if err := pub.Stop(); err != nil {
		t.Errorf("Stop before Start = %v", err)
	}
	pub.Start()
	pub.Stop()
	if err := pub.Stop(); err != nil {
		t.Errorf("second Stop = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestNewUDPPublisherValidation(t *testing.T) {
	if _, err := NewUDPPublisher(time.Millisecond, nil, fixedState{}, nil); err == nil {
		t.Error("expected error for nil sender")
	}
	sender, err := NewUDPSender(listen(t).LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()
	if _, err := NewUDPPublisher(time.Millisecond, sender, nil, nil); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestSender(t *testing.T) {
	if _, err := NewUDPSender("not an address"); err == nil {
		t.Error("expected error for bad address")
	}

	sender, err := NewUDPSender(listen(t).LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	if err := sender.Send([]byte{1, 2, 3}); err != nil {
		t.Errorf("Send error: %v", err)
	}
	sender.Close()
	if err := sender.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := sender.Send([]byte{1}); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send after Close = %v, want ErrSenderClosed", err)
	}
}

func TestDecodePacketLength(t *testing.T) {
	if _, err := DecodePacket(make([]byte, PacketSize-1)); err == nil {
		t.Error("expected error for short packet")
	}
}

func BenchmarkBuildAndSendPacket(b *testing.B) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		b.Fatal(err)
	}
	defer conn.Close()
	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		b.Fatal(err)
	}
	pub, err := NewUDPPublisher(time.Second, sender, fixedState{BPM: 120}, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer pub.Close()

	b.ReportAllocs()
	for b.Loop() {
		pub.buildAndSendPacket()
	}
}
