// Package airport provides the ICAO to coordinate table used when a station
// has no observation and a forecast must be requested by position.
package airport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Airport table errors.
var (
	ErrMissingColumn = errors.New("airport table missing required column")
	ErrInvalidRow    = errors.New("invalid airport row")
)

// Coordinates locates a station.
type Coordinates struct {
	ICAO string  `json:"icao"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Table is a case-insensitive ICAO lookup table. Safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Coordinates
}

// NewTable creates a table holding the given entries.
func NewTable(entries ...Coordinates) *Table {
	t := &Table{entries: make(map[string]Coordinates, len(entries))}
	for _, e := range entries {
		t.Add(e)
	}
	return t
}

// DefaultTable returns a table of major airports.
func DefaultTable() *Table {
	return NewTable(defaultAirports...)
}

// LoadFile reads a CSV coordinate table from path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening airport table: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return t, nil
}

// Load reads a CSV table with a header row containing icao, lat and lon
// columns, and optionally name. Other columns are ignored.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"icao", "lat", "lon"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	nameCol, hasName := cols["name"]

	t := NewTable()
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		field := func(i int) string {
			if i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		icao := field(cols["icao"])
		if icao == "" {
			continue
		}
		lat, err := strconv.ParseFloat(field(cols["lat"]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d lat: %w", ErrInvalidRow, line, err)
		}
		lon, err := strconv.ParseFloat(field(cols["lon"]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d lon: %w", ErrInvalidRow, line, err)
		}

		c := Coordinates{ICAO: icao, Lat: lat, Lon: lon}
		if hasName {
			c.Name = field(nameCol)
		}
		t.Add(c)
	}

	return t, nil
}

// Add inserts an entry unless the code is already present, so the first row
// for a code wins.
func (t *Table) Add(c Coordinates) {
	key := strings.ToUpper(strings.TrimSpace(c.ICAO))
	c.ICAO = key

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[key]; exists {
		return
	}
	t.entries[key] = c
}

// Lookup returns the coordinates for an ICAO code, ignoring case.
func (t *Table) Lookup(icao string) (Coordinates, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.entries[strings.ToUpper(strings.TrimSpace(icao))]
	return c, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

var defaultAirports = []Coordinates{
	{ICAO: "KJFK", Name: "John F. Kennedy International", Lat: 40.6413, Lon: -73.7781},
	{ICAO: "KLAX", Name: "Los Angeles International", Lat: 33.9416, Lon: -118.4085},
	{ICAO: "KORD", Name: "Chicago O'Hare International", Lat: 41.9742, Lon: -87.9073},
	{ICAO: "EGLL", Name: "London Heathrow", Lat: 51.4700, Lon: -0.4543},
	{ICAO: "EHAM", Name: "Amsterdam Schiphol", Lat: 52.3105, Lon: 4.7683},
	{ICAO: "LFPG", Name: "Paris Charles de Gaulle", Lat: 49.0097, Lon: 2.5479},
	{ICAO: "EDDF", Name: "Frankfurt am Main", Lat: 50.0379, Lon: 8.5622},
	{ICAO: "VIDP", Name: "Indira Gandhi International", Lat: 28.5562, Lon: 77.1000},
	{ICAO: "VABB", Name: "Chhatrapati Shivaji Maharaj International", Lat: 19.0896, Lon: 72.8656},
	{ICAO: "OMDB", Name: "Dubai International", Lat: 25.2532, Lon: 55.3657},
	{ICAO: "WSSS", Name: "Singapore Changi", Lat: 1.3644, Lon: 103.9915},
	{ICAO: "RJTT", Name: "Tokyo Haneda", Lat: 35.5494, Lon: 139.7798},
	{ICAO: "YSSY", Name: "Sydney Kingsford Smith", Lat: -33.9399, Lon: 151.1753},
}
