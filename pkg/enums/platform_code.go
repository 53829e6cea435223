package enums

import (
	"fmt"
	"strings"
)

// PlatformCode identifies a delivery platform integration. The set is closed:
// adding a platform means adding a constant and a matching adapter variant.
type PlatformCode string

const (
	PlatformRappi     PlatformCode = "RAPPI"
	PlatformPedidosYa PlatformCode = "PEDIDOSYA"
)

var validPlatformCodes = []PlatformCode{
	PlatformRappi,
	PlatformPedidosYa,
}

func (p PlatformCode) String() string {
	return string(p)
}

func (p PlatformCode) IsValid() bool {
	for _, candidate := range validPlatformCodes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatformCode converts raw input (any case) into a PlatformCode.
func ParsePlatformCode(value string) (PlatformCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPlatformCodes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform code %q", value)
}
