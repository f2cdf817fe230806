// Package health provides small, composable liveness probes.
//
// Two checker types are implemented: TCPChecker dials a TCP address and
// reports whether the connection succeeded (cmd/vaultd's device list uses
// it for each paired device's reachability column), and HTTPChecker
// issues an HTTP request and checks the response. Nothing outside this
// package's tests constructs an HTTPChecker. Status
// adds hysteresis on top of either checker: a target isn't marked
// unhealthy until it fails Config.Retries checks in a row, and a single
// success clears the failure streak immediately.
package health
