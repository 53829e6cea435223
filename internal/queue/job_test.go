package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

func TestJobIDDeterministic(t *testing.T) {
	assert.Equal(t, "RAPPI_abc123", JobID(enums.PlatformRappi, "abc123"))
	assert.Equal(t, "PEDIDOSYA_py-9001", JobID(enums.PlatformPedidosYa, "py-9001"))

	// Same platform and order always yields the same id; replays collapse on it.
	assert.Equal(t,
		JobID(enums.PlatformRappi, "abc123"),
		JobID(enums.PlatformRappi, "abc123"))
}

func TestJobIDDistinguishesPlatforms(t *testing.T) {
	assert.NotEqual(t,
		JobID(enums.PlatformRappi, "abc123"),
		JobID(enums.PlatformPedidosYa, "abc123"))
}
