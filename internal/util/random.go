package util

import "math/rand/v2"

// Source is the randomness consumed by identifier, content and fault
// generation. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// DefaultSource is the process-wide source, safe for concurrent use.
var DefaultSource Source = globalSource{}

// OrDefault returns src, or DefaultSource when src is nil.
func OrDefault(src Source) Source {
	if src == nil {
		return DefaultSource
	}
	return src
}

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomAlphanumeric returns n characters drawn from [A-Za-z0-9].
func RandomAlphanumeric(src Source, n int) string {
	src = OrDefault(src)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumerics[src.IntN(len(alphanumerics))]
	}
	return string(b)
}

// RandomUpperAlphanumeric returns n characters drawn from [A-Z0-9].
func RandomUpperAlphanumeric(src Source, n int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	src = OrDefault(src)
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[src.IntN(len(charset))]
	}
	return string(b)
}

// RandomDigits returns n decimal digits.
func RandomDigits(src Source, n int) string {
	src = OrDefault(src)
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + src.IntN(10))
	}
	return string(b)
}
