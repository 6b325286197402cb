// Package discovery finds devices on the local network by UDP broadcast.
//
// A Service binds one UDP socket on the discovery port (36721 by default),
// broadcasts a device-info request immediately and then on a fixed interval,
// and decodes every datagram it receives into the device Registry.
//
// # Components
//
//   - Transport: the UDP socket with SO_REUSEADDR and SO_BROADCAST set
//   - Registry: devices keyed by the IP reported in the response payload
//   - Scheduler: immediate trigger, periodic ticks, manual TriggerOnce
//   - Service: wires the three together and owns error handling
//
// # Usage Example
//
//	svc := discovery.NewService(config.DefaultDiscovery())
//	if err := svc.Start(ctx); err != nil {
//	    var bindErr *discovery.BindError
//	    if errors.As(err, &bindErr) {
//	        log.Fatalf("port in use: %v", err)
//	    }
//	}
//	defer svc.Stop()
//
//	events, unsubscribe := svc.Subscribe(0)
//	defer unsubscribe()
//	for evt := range events {
//	    fmt.Println(evt.Type, evt.Device)
//	}
//
// # Registry Semantics
//
// A later response for an IP replaces the earlier record wholesale. Records
// are never expired; only Clear removes them. Two devices reporting the same
// IP share one entry. The UDP sender address is kept as Record.Source for
// diagnostics but never used as the key.
//
// # Errors
//
// Start returns a *BindError when the socket cannot be bound. Broadcast
// failures surface as *SendError and are retried on the next tick. The
// receive loop ends with a *ReceiveError only on unexpected socket failures.
// Datagrams that are not valid responses are dropped and counted.
//
// # Network Requirements
//
//   - Devices must be on the same broadcast domain
//   - Firewalls must allow UDP 36721 in both directions
//   - The service hears its own broadcasts; the codec discards them
//
// # Thread Safety
//
// All exported types are safe for concurrent use. Registry subscribers
// receive events on buffered channels and never block writers.
package discovery
