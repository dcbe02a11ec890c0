package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeKey_normalizesCase(t *testing.T) {
	assert.Equal(t, "invite:code:ab12cd34", CodeKey("AB12cd34"))
	assert.Equal(t, CodeKey("xy98zz01"), CodeKey("XY98ZZ01"))
}
