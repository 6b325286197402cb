package urls

// Documentation URLs for guides and troubleshooting
// All URLs point to the project repository at https://github.com/muurk/devmon

// Repository is the project home page
const Repository = "https://github.com/muurk/devmon"

// NetworkTroubleshooting covers devices that never answer: firewalls,
// subnet broadcast addresses and VPN interfaces.
const NetworkTroubleshooting = Repository + "/blob/main/docs/troubleshooting.md#no-devices-found"

// PortConflicts explains binding the discovery port next to other tools
// and running more than one monitor on a host.
const PortConflicts = Repository + "/blob/main/docs/troubleshooting.md#port-in-use"

// BridgeAPI documents the HTTP and WebSocket endpoints served by 'devmon serve'.
const BridgeAPI = Repository + "/blob/main/docs/bridge.md"
