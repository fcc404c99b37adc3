package linutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/vmtrace/vmtrace/pkg/logflags"
)

// Parse errors returned by MapsReader. Both are wrapped with the
// offending column, use errors.Is to test for them.
var (
	// ErrInvalidCharacter is returned when a maps entry contains a
	// character outside the alphabet the grammar allows at that
	// position.
	ErrInvalidCharacter = errors.New("invalid character in maps entry")

	// ErrOutOfBounds is returned when a maps entry ends before all
	// required fields were seen.
	ErrOutOfBounds = errors.New("maps entry too short")
)

// Mapping represents one entry of a memory mapping listing in the
// format of /proc/<pid>/maps: a half open address range [Start, End),
// its permissions, the backing file offset, device and inode, and the
// pathname of the backing file (empty for anonymous mappings).
type Mapping struct {
	Start uint64
	End   uint64

	Read   bool
	Write  bool
	Exec   bool
	Shared bool

	Offset uint64

	// DevMajor and DevMinor identify the backing device. Both fields
	// are 16 bit; kernels can report wider minor numbers, which do not
	// round-trip through this representation.
	DevMajor uint16
	DevMinor uint16

	Inode uint64

	// Pathname of the backing file, empty for anonymous mappings.
	Pathname string
}

// Size returns the length of the mapped range in bytes.
func (m *Mapping) Size() uint64 {
	return m.End - m.Start
}

// Contains reports whether addr falls inside the mapped range.
func (m *Mapping) Contains(addr uint64) bool {
	return addr >= m.Start && addr < m.End
}

func (m *Mapping) String() string {
	perms := [4]byte{'-', '-', '-', 'p'}
	if m.Read {
		perms[0] = 'r'
	}
	if m.Write {
		perms[1] = 'w'
	}
	if m.Exec {
		perms[2] = 'x'
	}
	if m.Shared {
		perms[3] = 's'
	}
	return fmt.Sprintf("%x-%x %s %x %x:%x %d %s", m.Start, m.End, perms[:], m.Offset, m.DevMajor, m.DevMinor, m.Inode, m.Pathname)
}

// MapsReader produces Mapping records from a line oriented byte
// stream in the format of /proc/<pid>/maps. The stream is opened by
// the caller; this package performs no filesystem access.
//
// Records are produced one per Next call. A malformed line poisons the
// reader: no further records are produced, but records returned before
// the fault stay valid.
type MapsReader struct {
	rd  *bufio.Reader
	err error
}

// NewMapsReader returns a MapsReader consuming r.
func NewMapsReader(r io.Reader) *MapsReader {
	return &MapsReader{rd: bufio.NewReader(r)}
}

// Next returns the next mapping in the listing, or (nil, nil) at a
// clean end of stream.
func (mr *MapsReader) Next() (*Mapping, error) {
	if mr.err != nil {
		return nil, mr.err
	}
	line, err := mr.rd.ReadString('\n')
	if err != nil && err != io.EOF {
		mr.err = err
		return nil, err
	}
	if len(line) == 0 {
		return nil, nil
	}
	if line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	m, err := parseMapsEntry(line)
	if err != nil {
		if logflags.Maps() {
			logflags.MapsLogger().Debugf("parse fault, no further records: %v", err)
		}
		mr.err = err
		return nil, err
	}
	return m, nil
}

// ParseMaps reads all mappings remaining in r. Mappings parsed before
// an error are returned alongside it.
func ParseMaps(r io.Reader) ([]Mapping, error) {
	mr := NewMapsReader(r)
	var mappings []Mapping
	for {
		m, err := mr.Next()
		if err != nil {
			return mappings, err
		}
		if m == nil {
			return mappings, nil
		}
		mappings = append(mappings, *m)
	}
}

// FindMapping returns the mapping containing addr, or nil. The slice
// must be in ascending start order, as the kernel produces it.
func FindMapping(mappings []Mapping, addr uint64) *Mapping {
	i := sort.Search(len(mappings), func(i int) bool {
		return mappings[i].End > addr
	})
	if i < len(mappings) && mappings[i].Start <= addr {
		return &mappings[i]
	}
	return nil
}

// mapsLine is a cursor over one line of the listing.
type mapsLine struct {
	s   string
	pos int
}

func (l *mapsLine) invalid() error {
	return fmt.Errorf("column %d: %w", l.pos, ErrInvalidCharacter)
}

func (l *mapsLine) short() error {
	return fmt.Errorf("column %d: %w", l.pos, ErrOutOfBounds)
}

// expect consumes c or fails.
func (l *mapsLine) expect(c byte) error {
	if l.pos >= len(l.s) {
		return l.short()
	}
	if l.s[l.pos] != c {
		return l.invalid()
	}
	l.pos++
	return nil
}

// hex consumes one or more hexadecimal digits.
func (l *mapsLine) hex() (uint64, error) {
	if l.pos >= len(l.s) {
		return 0, l.short()
	}
	var v uint64
	n := 0
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			if n == 0 {
				return 0, l.invalid()
			}
			return v, nil
		}
		v = v<<4 | d
		n++
		l.pos++
	}
	return v, nil
}

// dec consumes one or more decimal digits.
func (l *mapsLine) dec() (uint64, error) {
	if l.pos >= len(l.s) {
		return 0, l.short()
	}
	var v uint64
	n := 0
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c < '0' || c > '9' {
			if n == 0 {
				return 0, l.invalid()
			}
			return v, nil
		}
		v = v*10 + uint64(c-'0')
		n++
		l.pos++
	}
	return v, nil
}

// parseMapsEntry parses a single line of the listing, left to right:
// start-end, the four character permission field, offset, major:minor,
// inode and the optional pathname.
func parseMapsEntry(line string) (*Mapping, error) {
	l := &mapsLine{s: line}
	m := &Mapping{}
	var err error

	if m.Start, err = l.hex(); err != nil {
		return nil, err
	}
	if err = l.expect('-'); err != nil {
		return nil, err
	}
	if m.End, err = l.hex(); err != nil {
		return nil, err
	}
	if err = l.expect(' '); err != nil {
		return nil, err
	}

	if l.pos+4 > len(l.s) {
		return nil, l.short()
	}
	perms := l.s[l.pos : l.pos+4]
	l.pos += 4
	m.Read = perms[0] == 'r'
	m.Write = perms[1] == 'w'
	m.Exec = perms[2] == 'x'
	m.Shared = perms[3] == 's' || perms[3] == 'S'

	if err = l.expect(' '); err != nil {
		return nil, err
	}
	if m.Offset, err = l.hex(); err != nil {
		return nil, err
	}
	if err = l.expect(' '); err != nil {
		return nil, err
	}
	major, err := l.hex()
	if err != nil {
		return nil, err
	}
	m.DevMajor = uint16(major)
	if err = l.expect(':'); err != nil {
		return nil, err
	}
	minor, err := l.hex()
	if err != nil {
		return nil, err
	}
	m.DevMinor = uint16(minor)
	if err = l.expect(' '); err != nil {
		return nil, err
	}
	if m.Inode, err = l.dec(); err != nil {
		return nil, err
	}

	for l.pos < len(l.s) && l.s[l.pos] == ' ' {
		l.pos++
	}
	path := l.s[l.pos:]
	for len(path) > 0 && (path[len(path)-1] == ' ' || path[len(path)-1] == '\r') {
		path = path[:len(path)-1]
	}
	m.Pathname = path

	return m, nil
}
