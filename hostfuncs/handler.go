package hostfuncs

import "context"

// ByteHandler is a function that accepts raw request bytes from guest memory and
// returns the response bytes. A nil response means "no payload" to the guest.
type ByteHandler func(context.Context, []byte) ([]byte, error)
