// Package bridge exposes the device registry over HTTP and WebSocket.
//
// The bridge is a presentation layer: it reads decoded device records from
// the discovery service and forwards manual discover and clear requests. It
// never sees raw datagrams.
//
// # Endpoints
//
//	GET    /api/devices   JSON array of device records, ordered by IP
//	POST   /api/discover  broadcast a request now (202, or 503 when stopped)
//	DELETE /api/devices   clear the registry (204)
//	GET    /api/version   build information
//	GET    /ws            event stream, see below
//	GET    /metrics       Prometheus metrics
//	GET    /healthz       liveness probe
//
// # Event Stream
//
// A websocket client first receives one device-found message per known
// device, then every registry change:
//
//	{"type":"device-found","device":{"deviceId":7,"ip":"192.168.1.10",...},"timestamp":"..."}
//	{"type":"devices-cleared","timestamp":"..."}
//
// Clients may send {"action":"discover"} or {"action":"clear"}. Failures
// come back as {"type":"error","error":"..."}.
//
// # Usage Example
//
//	srv, err := bridge.New(bridge.Config{Listen: ":8080", Advertise: true}, svc, reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Shutdown(context.Background())
//
// # mDNS
//
// With Advertise set, the bridge registers itself as "_devmon._tcp" so other
// machines can find it with Scanner.ScanForBridges.
//
// # Graceful Shutdown
//
//  1. Withdraw the mDNS advertisement
//  2. Close websocket clients
//  3. Wait for in-flight requests until the context deadline
package bridge
