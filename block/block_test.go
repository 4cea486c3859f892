package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIDSimple(t *testing.T) {
	id, err := ExtractID("BlockState(id: 42, Stone)")
	require.NoError(t, err)
	assert.Equal(t, "minecraft:stone", id)
}

func TestExtractIDWithProperties(t *testing.T) {
	id, err := ExtractID("BlockState(id: 93, RedstoneWire { power: 7, north: side })")
	require.NoError(t, err)
	assert.Equal(t, "minecraft:redstone_wire[north=side,power=7]", id)
}

func TestExtractIDRejectsMalformed(t *testing.T) {
	_, err := ExtractID("not a block state")
	assert.Error(t, err)
}

func TestParseBlockSimple(t *testing.T) {
	b, err := ParseBlock("minecraft:stone")
	require.NoError(t, err)
	assert.Equal(t, "minecraft:stone", b.ID)
	assert.Empty(t, b.Properties)
}

func TestParseBlockWithProperties(t *testing.T) {
	b, err := ParseBlock("minecraft:redstone_wire[north=side,power=7]")
	require.NoError(t, err)
	assert.Equal(t, "minecraft:redstone_wire", b.ID)
	assert.Equal(t, "7", b.Properties["power"])
	assert.Equal(t, "side", b.Properties["north"])
}

func TestParseBlockAddsDefaultNamespace(t *testing.T) {
	b, err := ParseBlock("stone")
	require.NoError(t, err)
	assert.Equal(t, "minecraft:stone", b.ID)
}

func TestBlockStringRoundTrip(t *testing.T) {
	b, err := ParseBlock("minecraft:redstone_wire[north=side,power=7]")
	require.NoError(t, err)
	assert.Equal(t, "minecraft:redstone_wire[north=side,power=7]", b.String())
}

func TestExtractThenParseRoundTrips(t *testing.T) {
	id, err := ExtractID("BlockState(id: 93, RedstoneWire { power: 7, north: side })")
	require.NoError(t, err)
	b, err := ParseBlock(id)
	require.NoError(t, err)
	assert.Equal(t, "minecraft:redstone_wire", b.ID)
	assert.Equal(t, "7", b.Properties["power"])
}

func TestBlockMatches(t *testing.T) {
	assert.True(t, Matches("stone", "minecraft:stone"))
	assert.True(t, Matches("minecraft:stone", "stone"))
	assert.True(t, Matches("wire", "minecraft:redstone_wire[power=7]"))
	assert.False(t, Matches("dirt", "minecraft:stone"))
}

func TestBlockMatchesDoesNotAcceptExpectedMoreSpecificThanObserved(t *testing.T) {
	// Matches only tolerates a bare expected name against a more specific
	// observed one, never the reverse: a caller expecting
	// "redstone_wire" is not satisfied by a bare "wire" observation.
	assert.False(t, Matches("redstone_wire", "wire"))
	assert.False(t, Matches("minecraft:redstone_wire", "minecraft:wire"))
}

func TestPropertyValue(t *testing.T) {
	v, ok := PropertyValue("minecraft:redstone_wire[north=side,power=7]", "power")
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	_, ok = PropertyValue("minecraft:redstone_wire[north=side,power=7]", "missing")
	assert.False(t, ok)
}
