// Package serial owns the lifecycle of the serial byte stream: device
// discovery, open, line framing, fault detection and reconnection.
//
// The Supervisor is an explicit state machine
// (Disconnected → Connecting → Open → Faulted → Disconnected …) that retries
// forever at a fixed interval. An unattended bridge has nothing better to do
// than wait for the device to come back, so there is deliberately no attempt
// cap. The rest of the process never touches the port handle; it sees only
// the Lines channel, valid lines in arrival order across all Open periods.
package serial
