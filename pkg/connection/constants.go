package connection

import "time"

// DefaultConnectTimeout bounds Connect when ctx has no deadline of its own.
const DefaultConnectTimeout = 10 * time.Second
