package domain

import (
	"fmt"
	"time"
)

// TransportConfig holds the transport-level settings that shape a channel
// factory: scheme, message-size limit, and the per-phase timeouts. Two
// configurations with the same Signature are interchangeable for pooling.
type TransportConfig struct {
	Scheme         string        `validate:"omitempty,oneof=grpc grpcs"`
	MaxMessageSize int           `validate:"min=0"`
	OpenTimeout    time.Duration `validate:"min=0"`
	CallTimeout    time.Duration `validate:"min=0"`
	CloseTimeout   time.Duration `validate:"min=0"`
}

// Signature returns a stable value identifying this configuration for
// factory-cache keying.
func (c TransportConfig) Signature() string {
	return fmt.Sprintf("%s/%d/%d/%d/%d",
		c.Scheme, c.MaxMessageSize,
		c.OpenTimeout, c.CallTimeout, c.CloseTimeout)
}
