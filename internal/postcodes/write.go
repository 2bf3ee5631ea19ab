package postcodes

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Output file names.
const (
	FilePostcodes  = "sectors"  // sector -> ward -> postcodes (.json, .yaml)
	FileWards      = "sectors2" // sector -> wards (.json, .yaml)
	FileCounts     = "sectors3" // ward counts (.json, .txt)
	FileSingleWard = "sectors-1-ward.csv"
)

// PostcodesByWard maps sector to "<code> <name>" ward labels to postcodes.
func (ix *Index) PostcodesByWard() map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(ix.sectors))
	for name, s := range ix.sectors {
		wards := make(map[string][]string, len(s.Wards))
		for _, w := range s.Wards {
			wards[w.Key()] = s.Postcodes[w]
		}
		out[name] = wards
	}
	return out
}

// WardsBySector maps sector to its ward labels in first-seen order.
func (ix *Index) WardsBySector() map[string][]string {
	out := make(map[string][]string, len(ix.sectors))
	for name, s := range ix.sectors {
		labels := make([]string, len(s.Wards))
		for i, w := range s.Wards {
			labels[i] = w.Key()
		}
		out[name] = labels
	}
	return out
}

// WriteCounts writes "<sector>: N wards" lines.
func WriteCounts(w io.Writer, counts []SectorCount) error {
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "%s: %d wards\n", c.Sector, c.Wards); err != nil {
			return eris.Wrap(err, "postcodes: write counts")
		}
	}
	return nil
}

// WriteSingleWard writes the sectors that sit inside exactly one ward.
func (ix *Index) WriteSingleWard(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Sector", ColumnWardCode, ColumnWardName}); err != nil {
		return eris.Wrap(err, "postcodes: write header")
	}
	for _, s := range ix.Sectors() {
		if len(s.Wards) != 1 {
			continue
		}
		if err := cw.Write([]string{s.Name, s.Wards[0].Code, s.Wards[0].Name}); err != nil {
			return eris.Wrapf(err, "postcodes: write %s", s.Name)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "postcodes: flush")
}

// WriteAll writes every report into dir and returns the paths written.
func (ix *Index) WriteAll(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "postcodes: create %s", dir)
	}

	byWard := ix.PostcodesByWard()
	bySector := ix.WardsBySector()
	counts := ix.Counts()

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{FilePostcodes + ".json", jsonWriter(byWard)},
		{FilePostcodes + ".yaml", yamlWriter(byWard)},
		{FileWards + ".json", jsonWriter(bySector)},
		{FileWards + ".yaml", yamlWriter(bySector)},
		{FileCounts + ".json", jsonWriter(counts)},
		{FileCounts + ".txt", func(w io.Writer) error { return WriteCounts(w, counts) }},
		{FileSingleWard, ix.WriteSingleWard},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func jsonWriter(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "postcodes: encode json")
	}
}

func yamlWriter(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "postcodes: encode yaml")
		}
		return eris.Wrap(enc.Close(), "postcodes: close yaml")
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "postcodes: create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "postcodes: close %s", path)
}
