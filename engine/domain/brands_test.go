package domain

import "testing"

func TestBrandByName(t *testing.T) {
	b, ok := BrandByName("Honda")
	if !ok {
		t.Fatal("expected honda to be known")
	}
	if b.Country != "Japan" {
		t.Errorf("expected Japan, got %q", b.Country)
	}

	if _, ok := BrandByName("  TESLA "); !ok {
		t.Error("expected case- and space-insensitive lookup")
	}
	if _, ok := BrandByName("lada"); ok {
		t.Error("expected unknown brand to miss")
	}
}

func TestBrandByWMI(t *testing.T) {
	b, ok := BrandByWMI("1hg")
	if !ok {
		t.Fatal("expected 1HG to resolve")
	}
	if b.Name != "Honda" {
		t.Errorf("expected Honda, got %q", b.Name)
	}
	if _, ok := BrandByWMI("ZZZ"); ok {
		t.Error("expected unknown WMI to miss")
	}
}
