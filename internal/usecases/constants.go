package usecases

import "time"

// RequestExpiryDuration is how long a payment request stays payable.
// ExpiresAt is always CreatedAt plus exactly this duration and is never
// recalculated afterwards.
const RequestExpiryDuration = 1 * time.Hour
