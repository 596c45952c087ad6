package cellmap_test

import (
	"reflect"
	"testing"

	"protokoll/internal/cellmap"
)

func TestParseAddressRoundTrip(t *testing.T) {
	for _, addr := range []string{"A1", "N5", "AB12", "XFD1048576"} {
		c, err := cellmap.ParseAddress(addr)
		if err != nil {
			t.Fatalf("ParseAddress(%q) failed: %v", addr, err)
		}
		if got := c.Address(); got != addr {
			t.Fatalf("round trip %q -> %q", addr, got)
		}
	}
}

func TestParseAddressRejectsGarbage(t *testing.T) {
	for _, addr := range []string{"", "5N", "!!", "A0"} {
		if _, err := cellmap.ParseAddress(addr); err == nil {
			t.Fatalf("ParseAddress(%q) should fail", addr)
		}
	}
}

func TestNeighborsOrder(t *testing.T) {
	// 顺序固定：右、右二、下、右下、左
	got := cellmap.Neighbors("N5")
	want := []string{"O5", "P5", "N6", "O6", "M5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Neighbors(N5)=%v, want %v", got, want)
	}
}

func TestNeighborsBounds(t *testing.T) {
	// A1 没有左邻格
	got := cellmap.Neighbors("A1")
	want := []string{"B1", "C1", "A2", "B2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Neighbors(A1)=%v, want %v", got, want)
	}

	// 最后一行没有下方邻格
	got = cellmap.Neighbors("B1048576")
	want = []string{"C1048576", "D1048576", "A1048576"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Neighbors(B1048576)=%v, want %v", got, want)
	}
}

func TestNeighborsInvalidAddress(t *testing.T) {
	if got := cellmap.Neighbors("not-a-cell"); got != nil {
		t.Fatalf("Neighbors(garbage)=%v, want nil", got)
	}
}

func TestCoordInBounds(t *testing.T) {
	cases := []struct {
		c    cellmap.Coord
		want bool
	}{
		{cellmap.Coord{Row: 1, Col: 1}, true},
		{cellmap.Coord{Row: 0, Col: 1}, false},
		{cellmap.Coord{Row: 1, Col: 0}, false},
		{cellmap.Coord{Row: cellmap.MaxRow, Col: cellmap.MaxCol}, true},
		{cellmap.Coord{Row: cellmap.MaxRow + 1, Col: 1}, false},
		{cellmap.Coord{Row: 1, Col: cellmap.MaxCol + 1}, false},
	}
	for _, tc := range cases {
		if got := tc.c.InBounds(); got != tc.want {
			t.Fatalf("InBounds(%+v)=%v, want %v", tc.c, got, tc.want)
		}
	}
}
