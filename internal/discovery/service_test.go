package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/muurk/devmon/internal/config"
	"github.com/muurk/devmon/internal/metrics"
	"github.com/muurk/devmon/internal/protocol"
)

func newLoopbackService(t *testing.T, targetPort int, m *metrics.Discovery) *Service {
	t.Helper()

	cfg := config.Discovery{
		Port:             0,
		BroadcastAddress: "127.0.0.1",
		Interval:         time.Hour,
	}
	svc := NewService(cfg,
		WithMetrics(m),
		WithTransportConfig(func(tc *TransportConfig) {
			tc.BindHost = "127.0.0.1"
			tc.TargetPort = targetPort
		}),
	)
	t.Cleanup(func() { _ = svc.Stop() })
	return svc
}

func testDevice() protocol.DeviceRecord {
	return protocol.DeviceRecord{
		DeviceID: 3,
		IP:       "192.168.1.77",
		MAC:      net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x03},
		TCPPort:  23,
		UARTBaud: 9600,
	}
}

func TestService_DiscoversDeviceOnStart(t *testing.T) {
	dev := startFakeDevice(t, testDevice())
	m := metrics.NewDiscovery(nil)
	svc := newLoopbackService(t, dev.port(), m)

	events, unsubscribe := svc.Subscribe(4)
	defer unsubscribe()

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !svc.Running() {
		t.Error("Running() = false after Start")
	}

	select {
	case evt := <-events:
		if evt.Type != EventAdded {
			t.Errorf("event Type = %v, want %v", evt.Type, EventAdded)
		}
		if evt.Device.IP != "192.168.1.77" {
			t.Errorf("event Device.IP = %s, want 192.168.1.77", evt.Device.IP)
		}
		if evt.Device.Source != dev.conn.LocalAddr().String() {
			t.Errorf("event Device.Source = %s, want %s", evt.Device.Source, dev.conn.LocalAddr())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("device not discovered")
	}

	devices := svc.Devices()
	if len(devices) != 1 {
		t.Fatalf("Devices() returned %d records, want 1", len(devices))
	}
	if devices[0].UARTBaud != 9600 {
		t.Errorf("UARTBaud = %d, want 9600", devices[0].UARTBaud)
	}

	waitFor(t, "request counter", func() bool { return testutil.ToFloat64(m.RequestsSent) == 1 })
	if got := testutil.ToFloat64(m.ResponsesDecoded); got != 1 {
		t.Errorf("responses decoded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Devices); got != 1 {
		t.Errorf("devices gauge = %v, want 1", got)
	}
}

func TestService_DiscoverRepeatedResponsesKeepOneEntry(t *testing.T) {
	dev := startFakeDevice(t, testDevice())
	svc := newLoopbackService(t, dev.port(), nil)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.Discover(); err != nil {
			t.Fatalf("Discover() error = %v", err)
		}
	}

	waitFor(t, "four requests at the device", func() bool { return dev.requestCount() == 4 })
	waitFor(t, "registry entry", func() bool { return svc.Registry().Len() == 1 })

	// Give any trailing responses time to land
	time.Sleep(50 * time.Millisecond)
	if got := svc.Registry().Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestService_RejectsInvalidFrames(t *testing.T) {
	// Requests go to a silent socket so the service never hears itself
	sink, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer sink.Close()

	m := metrics.NewDiscovery(nil)
	svc := newLoopbackService(t, sink.LocalAddr().(*net.UDPAddr).Port, m)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	local, err := net.ResolveUDPAddr("udp4", svc.LocalAddr())
	if err != nil {
		t.Fatalf("ResolveUDPAddr() error = %v", err)
	}
	sender, err := net.DialUDP("udp4", nil, local)
	if err != nil {
		t.Fatalf("DialUDP() error = %v", err)
	}
	defer sender.Close()

	wrongType := make([]byte, protocol.ResponseSize)
	wrongType[0] = 0x07

	for _, frame := range [][]byte{{0x02, 0x01}, wrongType} {
		if _, err := sender.Write(frame); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	waitFor(t, "rejected frames", func() bool {
		short := testutil.ToFloat64(m.FramesRejected.WithLabelValues(metrics.ReasonTooShort))
		wrong := testutil.ToFloat64(m.FramesRejected.WithLabelValues(metrics.ReasonUnexpectedType))
		return short == 1 && wrong == 1
	})

	if got := svc.Registry().Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if err := svc.ReceiveErr(); err != nil {
		t.Errorf("ReceiveErr() = %v, want nil", err)
	}
}

func TestService_StopKeepsRegistry(t *testing.T) {
	dev := startFakeDevice(t, testDevice())
	svc := newLoopbackService(t, dev.port(), nil)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "registry entry", func() bool { return svc.Registry().Len() == 1 })

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	if svc.Running() {
		t.Error("Running() = true after Stop")
	}
	if got := len(svc.Devices()); got != 1 {
		t.Errorf("Devices() after Stop returned %d records, want 1", got)
	}
	if svc.LocalAddr() != "" {
		t.Errorf("LocalAddr() = %q after Stop, want empty", svc.LocalAddr())
	}

	err := svc.Discover()
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("Discover() after Stop error = %v, want ErrNotStarted", err)
	}
}

func TestService_Restart(t *testing.T) {
	dev := startFakeDevice(t, testDevice())
	svc := newLoopbackService(t, dev.port(), nil)

	for i := 0; i < 2; i++ {
		if err := svc.Start(context.Background()); err != nil {
			t.Fatalf("Start() #%d error = %v", i+1, err)
		}
		want := i + 1
		waitFor(t, "a request per start", func() bool { return dev.requestCount() == want })
		if err := svc.Stop(); err != nil {
			t.Fatalf("Stop() #%d error = %v", i+1, err)
		}
	}
}

func TestService_Clear(t *testing.T) {
	dev := startFakeDevice(t, testDevice())
	m := metrics.NewDiscovery(nil)
	svc := newLoopbackService(t, dev.port(), m)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "registry entry", func() bool { return svc.Registry().Len() == 1 })

	svc.Clear()

	if got := len(svc.Devices()); got != 0 {
		t.Errorf("Devices() after Clear returned %d records, want 0", got)
	}
	if got := testutil.ToFloat64(m.Devices); got != 0 {
		t.Errorf("devices gauge = %v, want 0", got)
	}
}

func TestService_BindFailure(t *testing.T) {
	svc := NewService(config.DefaultDiscovery(),
		WithTransportConfig(func(tc *TransportConfig) {
			tc.BindHost = "203.0.113.1"
			tc.Port = 0
		}),
	)

	err := svc.Start(context.Background())

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("Start() error = %v, want *BindError", err)
	}
	if svc.Running() {
		t.Error("Running() = true after bind failure")
	}
}

func TestService_ContextCancelClosesSocket(t *testing.T) {
	svc := newLoopbackService(t, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cancel()

	waitFor(t, "socket close", func() bool { return !svc.Running() })
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestService_ReceiveErrorRecorded(t *testing.T) {
	svc := newLoopbackService(t, 0, nil)

	sockErr := errors.New("network is down")
	svc.transport.readFrom = func(*net.UDPConn, []byte) (int, *net.UDPAddr, error) {
		return 0, nil, sockErr
	}

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "receive error", func() bool { return svc.ReceiveErr() != nil })

	var recvErr *ReceiveError
	if !errors.As(svc.ReceiveErr(), &recvErr) {
		t.Fatalf("ReceiveErr() = %v, want *ReceiveError", svc.ReceiveErr())
	}
	if !errors.Is(svc.ReceiveErr(), sockErr) {
		t.Errorf("ReceiveErr() = %v, want wrapped %v", svc.ReceiveErr(), sockErr)
	}

	if err := svc.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
