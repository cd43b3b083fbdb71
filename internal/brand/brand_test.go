package brand

import (
	"strings"
	"testing"
)

func TestBrandLoaded(t *testing.T) {
	if Name == "" {
		t.Fatal("brand Name is empty; brand.json failed to load")
	}
	if LowerName != strings.ToLower(Name) {
		t.Errorf("LowerName %q is not the lowercase of Name %q", LowerName, Name)
	}
	if BinaryName == "" {
		t.Error("BinaryName is empty")
	}
	if ConfigEnvPrefix == "" {
		t.Error("ConfigEnvPrefix is empty")
	}
}

func TestGet(t *testing.T) {
	got := Get()
	if got.Name != Name {
		t.Errorf("Get().Name = %q, want %q", got.Name, Name)
	}
	if got.DefaultConfig == "" {
		t.Error("DefaultConfig is empty")
	}
}
