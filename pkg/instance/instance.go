package instance

import (
	"os"

	"github.com/angelmondragon/greengate/pkg/env"
)

// EnvInstanceID overrides the detected instance identifier.
const EnvInstanceID = "GREENGATE_INSTANCE_ID"

// ID returns the identifier this process logs under: the override when set,
// then the hostname, then "local".
func ID() string {
	if id := env.Get(EnvInstanceID, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
