// Package upload turns bubble CSVs into paused geofenced ad sets.
package upload

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/pkg/meta"
)

var descriptorRe = regexp.MustCompile(`\(\s*([-0-9.]+),\s*([-0-9.]+)\)\s*\+(\d+(?:\.\d+)?)(km|mi)`)

// Group is the bubbles of one region, split by kind.
type Group struct {
	Name    string
	Include []meta.CustomLocation
	Exclude []meta.CustomLocation
}

// ParseDescriptor reads "(lat, lon) +Nkm" or "+Nmi".
func ParseDescriptor(s string) (meta.CustomLocation, error) {
	m := descriptorRe.FindStringSubmatch(s)
	if m == nil {
		return meta.CustomLocation{}, eris.Errorf("upload: invalid bubble format %q", s)
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return meta.CustomLocation{}, eris.Wrapf(err, "upload: latitude in %q", s)
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return meta.CustomLocation{}, eris.Wrapf(err, "upload: longitude in %q", s)
	}
	radius, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return meta.CustomLocation{}, eris.Wrapf(err, "upload: radius in %q", s)
	}
	unit := "kilometer"
	if m[4] == "mi" {
		unit = "mile"
	}
	return meta.CustomLocation{Latitude: lat, Longitude: lon, Radius: radius, DistanceUnit: unit}, nil
}

// ParseBubbles groups the rows of a bubble CSV by region, in first-seen
// order. The region comes from a "name" or "constituency" column, or is
// fallbackName when neither exists. Rows whose "type" (or "bubble_type") is
// exclusion become excluded locations.
func ParseBubbles(r io.Reader, fallbackName string) ([]Group, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "upload: read header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	bubbleCol, ok := cols["bubble"]
	if !ok {
		bubbleCol, ok = cols["coordinates"]
	}
	if !ok {
		return nil, eris.New(`upload: no "bubble" or "coordinates" column`)
	}
	nameCol, hasName := cols["name"]
	if !hasName {
		nameCol, hasName = cols["constituency"]
	}
	typeCol, hasType := cols["type"]
	if !hasType {
		typeCol, hasType = cols["bubble_type"]
	}

	index := map[string]int{}
	var groups []Group
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "upload: read line %d", line)
		}
		if bubbleCol >= len(rec) {
			return nil, eris.Errorf("upload: line %d has no bubble", line)
		}
		loc, err := ParseDescriptor(rec[bubbleCol])
		if err != nil {
			return nil, eris.Wrapf(err, "upload: line %d", line)
		}

		name := fallbackName
		if hasName && nameCol < len(rec) {
			name = rec[nameCol]
		}
		i, seen := index[name]
		if !seen {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}

		if hasType && typeCol < len(rec) && model.BubbleKind(rec[typeCol]) == model.KindExclusion {
			groups[i].Exclude = append(groups[i].Exclude, loc)
		} else {
			groups[i].Include = append(groups[i].Include, loc)
		}
	}
	return groups, nil
}

// ParseFile is ParseBubbles on a file, falling back to the file's base name.
func ParseFile(path string) ([]Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "upload: open bubbles")
	}
	defer f.Close() //nolint:errcheck

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseBubbles(f, name)
}
