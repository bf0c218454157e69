package types

// UnixMilli is a millisecond unix timestamp used on audit and API payloads.
type UnixMilli int64
