// Package instance identifies the host this trading core runs on. The id is
// reported by the system status endpoint so operators can tell deployments
// apart.
package instance

import (
	"github.com/denisbrodbeck/machineid"
)

// ID returns a stable, app-scoped identifier for this machine. The raw
// machine id never leaves the host; machineid hashes it with the app key.
func ID() (string, error) {
	return machineid.ProtectedID("trading-intelligence")
}
