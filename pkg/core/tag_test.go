package core

import "testing"

func TestTagColor(t *testing.T) {
	if TagColor("work") != TagColor("work") {
		t.Error("color is not stable")
	}
	if TagColor("work") == TagColor("home") {
		t.Log("distinct names hashed to the same color")
	}
	c := TagColor("anything")
	if l := c.Luminance(); l < 0 || l > 1 {
		t.Errorf("luminance out of range: %v", l)
	}
	if hex := c.Hex(); len(hex) != 7 || hex[0] != '#' {
		t.Errorf("unexpected hex %q", hex)
	}
}
