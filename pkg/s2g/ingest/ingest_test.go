package ingest

import (
	"strings"
	"testing"
)

func TestReadSelectsColumnsAndTrims(t *testing.T) {
	csv := "a, b ,c\n1, 2 ,3\n4,5,6\n"
	ds, err := Read(strings.NewReader(csv), 0, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	wantHeader := []string{"a", "b"}
	for i, h := range wantHeader {
		if ds.Header[i] != h {
			t.Errorf("Header[%d] = %q, want %q", i, ds.Header[i], h)
		}
	}
	if len(ds.Rows) != 2 || ds.Rows[0][0] != 1 || ds.Rows[0][1] != 2 {
		t.Errorf("Rows = %v", ds.Rows)
	}
}

func TestReadInvalidColumnRange(t *testing.T) {
	csv := "a,b\n1,2\n"
	if _, err := Read(strings.NewReader(csv), 3, 1); err == nil {
		t.Fatal("expected error for invalid column range")
	}
}

func TestReadBadFloat(t *testing.T) {
	csv := "a,b\nx,2\n"
	if _, err := Read(strings.NewReader(csv), 0, 2); err == nil {
		t.Fatal("expected error for unparseable float")
	}
}

func TestPartitionsEvenSplit(t *testing.T) {
	parts := Partitions(100, 4, 5)
	if len(parts) != 4 {
		t.Fatalf("len(parts) = %d, want 4", len(parts))
	}
	want := []struct{ start, end int }{{0, 25}, {25, 50}, {50, 75}, {75, 100}}
	for i, w := range want {
		if parts[i].Start != w.start || parts[i].End != w.end {
			t.Errorf("parts[%d] = %+v, want start=%d end=%d", i, parts[i], w.start, w.end)
		}
	}
	// interior boundaries get full overlap on both sides
	if parts[1].OverlapLo != 5 || parts[1].OverlapHi != 5 {
		t.Errorf("parts[1] overlap = lo:%d hi:%d, want 5/5", parts[1].OverlapLo, parts[1].OverlapHi)
	}
	// first partition has nothing before it
	if parts[0].OverlapLo != 0 {
		t.Errorf("parts[0].OverlapLo = %d, want 0", parts[0].OverlapLo)
	}
	// last partition has nothing after it
	if parts[3].OverlapHi != 0 {
		t.Errorf("parts[3].OverlapHi = %d, want 0", parts[3].OverlapHi)
	}
}

func TestPartitionsRemainderGoesToLast(t *testing.T) {
	parts := Partitions(10, 3, 0)
	if parts[0].End-parts[0].Start != 3 || parts[1].End-parts[1].Start != 3 {
		t.Errorf("expected base ranges of 3, got %+v", parts)
	}
	if parts[2].End-parts[2].Start != 4 {
		t.Errorf("expected last range to absorb remainder, got %+v", parts[2])
	}
}

func TestPartitionSlice(t *testing.T) {
	rows := make([][]float32, 10)
	for i := range rows {
		rows[i] = []float32{float32(i)}
	}
	parts := Partitions(10, 2, 2)
	slice := parts[1].Slice(rows)
	if slice[0][0] != 3 { // part[1] starts at 5, overlapLo 2 => row 3
		t.Errorf("slice[0][0] = %v, want 3", slice[0][0])
	}
}
