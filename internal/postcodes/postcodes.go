// Package postcodes groups Royal Mail PAF postcodes by sector and ward, to find
// the sectors that straddle ward boundaries.
package postcodes

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PAF column headers.
const (
	ColumnPostcode = "Postcode"
	ColumnSector   = "Postcode Sector"
	ColumnWardCode = "Ward Code"
	ColumnWardName = "Ward Name"
)

// Ward identifies an electoral ward.
type Ward struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Key is the "<code> <name>" label used in the exported files.
func (w Ward) Key() string { return w.Code + " " + w.Name }

// Sector is one postcode sector with its wards in first-seen order.
type Sector struct {
	Name      string
	Wards     []Ward
	Postcodes map[Ward][]string
}

// SectorCount pairs a sector with the number of wards it spans.
type SectorCount struct {
	Sector string `json:"sector" yaml:"sector"`
	Wards  int    `json:"wards" yaml:"wards"`
}

// Index accumulates postcodes across one or more PAF files.
type Index struct {
	sectors   map[string]*Sector
	wards     map[Ward]struct{}
	postcodes int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		sectors: make(map[string]*Sector),
		wards:   make(map[Ward]struct{}),
	}
}

// Postcodes is the number of rows read so far.
func (ix *Index) Postcodes() int { return ix.postcodes }

// Wards is the number of distinct wards seen.
func (ix *Index) Wards() int { return len(ix.wards) }

// Sectors returns every sector sorted by name.
func (ix *Index) Sectors() []*Sector {
	out := make([]*Sector, 0, len(ix.sectors))
	for _, s := range ix.sectors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Sector looks up one sector by name.
func (ix *Index) Sector(name string) (*Sector, bool) {
	s, ok := ix.sectors[name]
	return s, ok
}

// Add records one postcode.
func (ix *Index) Add(sector, postcode string, w Ward) {
	ix.postcodes++
	ix.wards[w] = struct{}{}

	s, ok := ix.sectors[sector]
	if !ok {
		s = &Sector{Name: sector, Postcodes: make(map[Ward][]string)}
		ix.sectors[sector] = s
	}
	if _, seen := s.Postcodes[w]; !seen {
		s.Wards = append(s.Wards, w)
	}
	s.Postcodes[w] = append(s.Postcodes[w], postcode)
}

// Read streams a PAF CSV into the index. Columns are located by header, so
// extra columns and any column order are accepted.
func (ix *Index) Read(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return 0, eris.New("postcodes: empty file")
	}
	if err != nil {
		return 0, eris.Wrap(err, "postcodes: read header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	idx := make([]int, 4)
	for i, name := range []string{ColumnPostcode, ColumnSector, ColumnWardCode, ColumnWardName} {
		c, ok := cols[name]
		if !ok {
			return 0, eris.Errorf("postcodes: missing column %q", name)
		}
		idx[i] = c
	}

	n := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, eris.Wrapf(err, "postcodes: row %d", n+2)
		}
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return n, eris.Wrap(err, "postcodes: read")
			}
		}
		field := func(i int) string {
			if idx[i] >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx[i]])
		}
		sector := field(1)
		if sector == "" {
			continue
		}
		ix.Add(sector, field(0), Ward{Code: field(2), Name: field(3)})
		n++
	}
}

// ReadFiles reads every path into a new index.
func ReadFiles(ctx context.Context, paths ...string) (*Index, error) {
	ix := NewIndex()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "postcodes: open %s", path)
		}
		n, err := ix.Read(ctx, f)
		_ = f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "postcodes: %s", path)
		}
		zap.L().Info("postcodes: file read",
			zap.String("path", path),
			zap.Int("postcodes", n),
			zap.Int("sectors", len(ix.sectors)),
			zap.Int("wards", len(ix.wards)),
		)
	}
	return ix, nil
}

// Counts returns the ward count of every sector, most wards first and then by
// sector name.
func (ix *Index) Counts() []SectorCount {
	out := make([]SectorCount, 0, len(ix.sectors))
	for name, s := range ix.sectors {
		out = append(out, SectorCount{Sector: name, Wards: len(s.Wards)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wards != out[j].Wards {
			return out[i].Wards > out[j].Wards
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

// Split returns the sectors spanning more than one ward.
func (ix *Index) Split() []SectorCount {
	var out []SectorCount
	for _, c := range ix.Counts() {
		if c.Wards > 1 {
			out = append(out, c)
		}
	}
	return out
}
