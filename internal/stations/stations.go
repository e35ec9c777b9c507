package stations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/tidwall/rtree"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/transfr/transfr/internal/domain"
)

// ErrNoMatch is returned when a name resolves to no known station.
var ErrNoMatch = errors.New("no matching station")

// Directory is an in-memory station directory loaded from a trainline-style
// CSV export. It is immutable after construction and safe for concurrent use.
type Directory struct {
	stations []domain.Station
	index    []indexEntry
	tree     rtree.RTreeG[int]
}

type indexEntry struct {
	norm string
	idx  int
}

// Load reads the stations CSV at path and builds the directory.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()

	d, err := New(f)
	if err != nil {
		return nil, fmt.Errorf("load stations from %s: %w", path, err)
	}
	return d, nil
}

// New builds a directory from semicolon-separated CSV data. Rows that are not
// suggestable or lack coordinates are skipped.
func New(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"id", "name"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	d := &Directory{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if field(record, "is_suggestable") != "t" {
			continue
		}
		latStr, lonStr := field(record, "latitude"), field(record, "longitude")
		if latStr == "" || lonStr == "" {
			continue
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("station %s: bad latitude %q", field(record, "id"), latStr)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("station %s: bad longitude %q", field(record, "id"), lonStr)
		}

		d.stations = append(d.stations, domain.Station{
			ID:            field(record, "id"),
			Name:          field(record, "name"),
			Slug:          field(record, "slug"),
			Latitude:      lat,
			Longitude:     lon,
			Country:       field(record, "country"),
			DBID:          field(record, "db_id"),
			UIC:           field(record, "uic"),
			IsMainStation: field(record, "is_main_station") == "t",
		})
	}

	d.index = make([]indexEntry, len(d.stations))
	for i, s := range d.stations {
		d.index[i] = indexEntry{norm: Normalize(s.Name), idx: i}
		d.tree.Insert(
			[2]float64{s.Longitude, s.Latitude},
			[2]float64{s.Longitude, s.Latitude},
			i,
		)
	}
	return d, nil
}

// Len reports the number of loaded stations.
func (d *Directory) Len() int { return len(d.stations) }

// Normalize lowercases a name and strips diacritics, so that "Zürich" and
// "zurich" index identically.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Autocomplete returns up to max stations matching a partial name. Prefix
// matches rank before substring matches, and main stations before minor ones
// within each group.
func (d *Directory) Autocomplete(term string, max int) []domain.Station {
	q := Normalize(term)
	if q == "" || max <= 0 {
		return nil
	}

	var prefix, substring []indexEntry
	for _, e := range d.index {
		switch {
		case strings.HasPrefix(e.norm, q):
			prefix = append(prefix, e)
		case strings.Contains(e.norm, q):
			substring = append(substring, e)
		}
	}
	d.rank(prefix)
	d.rank(substring)

	results := make([]domain.Station, 0, max)
	for _, e := range append(prefix, substring...) {
		if len(results) == max {
			break
		}
		results = append(results, d.stations[e.idx])
	}
	return results
}

// rank orders hits with main stations first, then by normalized name.
func (d *Directory) rank(hits []indexEntry) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if mainA, mainB := d.stations[a.idx].IsMainStation, d.stations[b.idx].IsMainStation; mainA != mainB {
			return mainA
		}
		if a.norm != b.norm {
			return a.norm < b.norm
		}
		return a.idx < b.idx
	})
}

// Resolve looks a station up by name: an exact normalized match wins,
// otherwise the best autocomplete hit. Returns ErrNoMatch when neither exists.
func (d *Directory) Resolve(name string) (domain.Station, error) {
	q := Normalize(name)
	for _, e := range d.index {
		if e.norm == q {
			return d.stations[e.idx], nil
		}
	}
	if hits := d.Autocomplete(name, 1); len(hits) > 0 {
		return hits[0], nil
	}
	return domain.Station{}, fmt.Errorf("station %q: %w", name, ErrNoMatch)
}
