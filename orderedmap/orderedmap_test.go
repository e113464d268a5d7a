package orderedmap_test

import (
	"testing"

	"github.com/jetsetilly/spimdisasm/orderedmap"
)

type sizedValue struct {
	size uint32
}

func (s sizedValue) Size() uint32 { return s.size }

func TestFindExact(t *testing.T) {
	m := orderedmap.New[uint32, sizedValue]()
	m.Set(0x1000, sizedValue{size: 4})

	if _, _, ok := m.Find(0x1004, orderedmap.Exact()); ok {
		t.Fatalf("exact find should not match interior address")
	}
	if _, v, ok := m.Find(0x1000, orderedmap.Exact()); !ok || v.size != 4 {
		t.Fatalf("expected exact match")
	}
}

func TestFindAddended(t *testing.T) {
	m := orderedmap.New[uint32, sizedValue]()
	m.Set(0x1000, sizedValue{size: 0x10})
	m.Set(0x2000, sizedValue{size: 0x4})

	for k := uint32(0x1000); k < 0x1010; k++ {
		start, _, ok := m.Find(k, orderedmap.Addended())
		if !ok || start != 0x1000 {
			t.Fatalf("key 0x%x should resolve to start 0x1000, got start=0x%x ok=%v", k, start, ok)
		}
	}

	if _, _, ok := m.Find(0x1010, orderedmap.Addended()); ok {
		t.Fatalf("0x1010 is outside [0x1000, 0x1010), should not match")
	}

	start, _, ok := m.Find(0x2000, orderedmap.Addended())
	if !ok || start != 0x2000 {
		t.Fatalf("expected exact entry at 0x2000")
	}
}

func TestFindMutOrInsertWith(t *testing.T) {
	m := orderedmap.New[uint32, sizedValue]()

	_, v, created := m.FindMutOrInsertWith(0x1000, orderedmap.Addended(), func() sizedValue {
		return sizedValue{size: 4}
	})
	if !created {
		t.Fatalf("expected new entry to be created")
	}
	v.size = 8

	_, v2, created := m.FindMutOrInsertWith(0x1002, orderedmap.Addended(), func() sizedValue {
		t.Fatalf("should not create a second entry for an interior address")
		return sizedValue{}
	})
	if created {
		t.Fatalf("expected existing entry to be reused")
	}
	if v2.size != 8 {
		t.Fatalf("expected mutated size 8, got %d", v2.size)
	}
}

func TestKeysAreSorted(t *testing.T) {
	m := orderedmap.New[uint32, sizedValue]()
	for _, k := range []uint32{0x3000, 0x1000, 0x2000} {
		m.Set(k, sizedValue{size: 4})
	}

	keys := m.Keys()
	want := []uint32{0x1000, 0x2000, 0x3000}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("expected sorted keys %v, got %v", want, keys)
		}
	}
}
