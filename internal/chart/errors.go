package chart

import "errors"

// ErrPayloadTooLarge is returned when an encoded chart exceeds the configured bound
var ErrPayloadTooLarge = errors.New("chart payload too large")
