package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToXPath_TextSelector(t *testing.T) {
	assert.Equal(t, `//*[contains(text(), "收货地址")]`, toXPath("text=/收货地址/"))
}

func TestToXPath_ClassSelector(t *testing.T) {
	assert.Equal(t,
		`//*[contains(concat(" ", normalize-space(@class), " "), " boldNum--JgEOXfA3 ")]`,
		toXPath(".boldNum--JgEOXfA3"))
}

func TestToXPath_TagClassSelector(t *testing.T) {
	assert.Equal(t,
		`//span[contains(concat(" ", normalize-space(@class), " "), " textItemValue--w9qCWO1o ")]`,
		toXPath("span.textItemValue--w9qCWO1o"))
}

func TestToXPath_ClassSubstringSelector(t *testing.T) {
	assert.Equal(t, `//*[contains(@class, "textItemValue")]`, toXPath(`[class*="textItemValue"]`))
}

func TestToXPath_BareTag(t *testing.T) {
	assert.Equal(t, "//li", toXPath("li"))
}

func TestToRelativeXPath(t *testing.T) {
	assert.Equal(t,
		`/descendant::span[contains(concat(" ", normalize-space(@class), " "), " textItemValue--w9qCWO1o ")]`,
		toRelativeXPath("span.textItemValue--w9qCWO1o"))
}
