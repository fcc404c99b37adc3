package linutil

import (
	"errors"
	"strings"
	"testing"
)

func TestParseMapsEntry(t *testing.T) {
	const line = "00400000-00452000 r-xp 00000000 08:01 123456 /usr/bin/x\n"
	mr := NewMapsReader(strings.NewReader(line))
	m, err := mr.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("expected a mapping")
	}
	if m.Start != 0x400000 || m.End != 0x452000 {
		t.Errorf("bad range %x-%x", m.Start, m.End)
	}
	if !m.Read || m.Write || !m.Exec || m.Shared {
		t.Errorf("bad permissions: %+v", m)
	}
	if m.Offset != 0 {
		t.Errorf("bad offset %x", m.Offset)
	}
	if m.DevMajor != 0x08 || m.DevMinor != 0x01 {
		t.Errorf("bad device %x:%x", m.DevMajor, m.DevMinor)
	}
	if m.Inode != 123456 {
		t.Errorf("bad inode %d", m.Inode)
	}
	if m.Pathname != "/usr/bin/x" {
		t.Errorf("bad pathname %q", m.Pathname)
	}
	if m.Size() != 0x52000 {
		t.Errorf("bad size %x", m.Size())
	}

	m, err = mr.Next()
	if m != nil || err != nil {
		t.Fatalf("expected clean end of stream, got %v, %v", m, err)
	}
}

func TestParseMapsAnonymous(t *testing.T) {
	const line = "7f1234560000-7f1234581000 rw-p 00000000 00:00 0\n"
	mr := NewMapsReader(strings.NewReader(line))
	m, err := mr.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Pathname != "" {
		t.Errorf("expected anonymous mapping, got pathname %q", m.Pathname)
	}
	if !m.Read || !m.Write || m.Exec || m.Shared {
		t.Errorf("bad permissions: %+v", m)
	}
}

func TestParseMapsSharedFlag(t *testing.T) {
	for _, c := range []byte{'s', 'S'} {
		line := "0-1000 rw-" + string(c) + " 00000000 00:05 42 /dev/shm/seg\n"
		mr := NewMapsReader(strings.NewReader(line))
		m, err := mr.Next()
		if err != nil {
			t.Fatalf("%c: unexpected error: %v", c, err)
		}
		if !m.Shared {
			t.Errorf("%c: expected shared mapping", c)
		}
	}
}

func TestParseMapsPathnameTrimming(t *testing.T) {
	const line = "0-1000 r--p 00000000 00:01 7   /with spaces/file  \r\n"
	mr := NewMapsReader(strings.NewReader(line))
	m, err := mr.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Pathname != "/with spaces/file" {
		t.Errorf("bad pathname %q", m.Pathname)
	}
}

func TestParseMapsNoTrailingNewline(t *testing.T) {
	const line = "0-1000 r--p 00000000 00:01 7 /x"
	mr := NewMapsReader(strings.NewReader(line))
	m, err := mr.Next()
	if err != nil || m == nil || m.Pathname != "/x" {
		t.Fatalf("expected record for final unterminated line, got %v, %v", m, err)
	}
	if m, err := mr.Next(); m != nil || err != nil {
		t.Fatalf("expected clean end of stream, got %v, %v", m, err)
	}
}

func TestParseMapsEmptyStream(t *testing.T) {
	mr := NewMapsReader(strings.NewReader(""))
	m, err := mr.Next()
	if m != nil || err != nil {
		t.Fatalf("expected empty sequence, got %v, %v", m, err)
	}
	// Still clean on repeated calls.
	if m, err := mr.Next(); m != nil || err != nil {
		t.Fatalf("expected empty sequence, got %v, %v", m, err)
	}
}

func TestParseMapsFaults(t *testing.T) {
	for _, tc := range []struct {
		name string
		line string
		want error
	}{
		{"bad start", "zz400000-452000 r-xp 0 08:01 1\n", ErrInvalidCharacter},
		{"missing dash", "00400000 00452000 r-xp 0 08:01 1\n", ErrInvalidCharacter},
		{"short perms", "00400000-00452000 r-\n", ErrOutOfBounds},
		{"bad offset", "00400000-00452000 r-xp qq 08:01 1\n", ErrInvalidCharacter},
		{"missing colon", "00400000-00452000 r-xp 0 0801 1\n", ErrInvalidCharacter},
		{"bad inode", "00400000-00452000 r-xp 0 08:01 x\n", ErrInvalidCharacter},
		{"truncated", "00400000-\n", ErrOutOfBounds},
		{"empty line", "\n", ErrOutOfBounds},
	} {
		mr := NewMapsReader(strings.NewReader(tc.line))
		_, err := mr.Next()
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestParseMapsFaultRetainsPriorRecords(t *testing.T) {
	const listing = "0-1000 r--p 00000000 00:01 7 /a\n" +
		"1000-2000 rw-p 00000000 00:01 8 /b\n" +
		"garbage\n" +
		"3000-4000 rw-p 00000000 00:01 9 /never\n"
	mappings, err := ParseMaps(strings.NewReader(listing))
	if !errors.Is(err, ErrInvalidCharacter) {
		t.Fatalf("expected ErrInvalidCharacter, got %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 retained mappings, got %d", len(mappings))
	}
	if mappings[0].Pathname != "/a" || mappings[1].Pathname != "/b" {
		t.Errorf("retained mappings corrupted: %v", mappings)
	}

	// The reader stays poisoned.
	mr := NewMapsReader(strings.NewReader("garbage\n0-1000 r--p 00000000 00:01 7 /a\n"))
	if _, err := mr.Next(); err == nil {
		t.Fatal("expected parse fault")
	}
	if _, err := mr.Next(); err == nil {
		t.Fatal("expected reader to stay failed")
	}
}

func TestFindMapping(t *testing.T) {
	mappings := []Mapping{
		{Start: 0x1000, End: 0x2000},
		{Start: 0x2000, End: 0x3000},
		{Start: 0x8000, End: 0x9000},
	}
	for _, tc := range []struct {
		addr uint64
		want int // index, -1 for none
	}{
		{0x0fff, -1},
		{0x1000, 0},
		{0x1fff, 0},
		{0x2000, 1},
		{0x3000, -1},
		{0x8500, 2},
		{0x9000, -1},
	} {
		m := FindMapping(mappings, tc.addr)
		if tc.want == -1 {
			if m != nil {
				t.Errorf("addr %#x: expected no mapping, got %v", tc.addr, m)
			}
			continue
		}
		if m == nil {
			t.Errorf("addr %#x: expected mapping %d, got none", tc.addr, tc.want)
			continue
		}
		if !m.Contains(tc.addr) || m.Start != mappings[tc.want].Start {
			t.Errorf("addr %#x: got wrong mapping %v", tc.addr, m)
		}
	}
}
