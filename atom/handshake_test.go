package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, compareVersions("1.2.0", "1.2.0"))
	assert.Equal(t, -1, compareVersions("1.2.0", "1.10.0"))
	assert.Equal(t, 1, compareVersions("2.0.0", "1.9.9"))
}

func TestRequireElementVersionLanguageFilter(t *testing.T) {
	info := VersionInfo{Language: "python", Version: "1.0.0"}
	err := RequireElementVersion(info, "", "go", "cpp")
	assert.NotNil(t, err)
	assert.Equal(t, KindInvalidCommand, err.Kind)
}

func TestRequireElementVersionMinVersion(t *testing.T) {
	info := VersionInfo{Language: "go", Version: "0.9.0"}
	err := RequireElementVersion(info, "1.0.0", "go")
	assert.NotNil(t, err)
}

func TestRequireElementVersionPasses(t *testing.T) {
	info := VersionInfo{Language: "go", Version: "1.2.0"}
	err := RequireElementVersion(info, "1.0.0", "go")
	assert.Nil(t, err)
}

func TestConfigFillDefaults(t *testing.T) {
	c := Config{Name: "cam0"}
	c.fillDefaults()
	assert.Equal(t, "go", c.LanguageTag)
	assert.Equal(t, MaxLenDefault, c.MaxLen)
}
