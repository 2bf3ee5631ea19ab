package store

import (
	"encoding/json"

	"github.com/sells-group/bubble-cli/internal/model"
)

// encodedRegion holds the JSON columns of a region result row.
type encodedRegion struct {
	coverage  []byte
	inclusion []byte
	exclusion []byte
}

func encodeRegionResult(r model.RegionResult) (encodedRegion, error) {
	var enc encodedRegion
	var err error
	if enc.coverage, err = json.Marshal(r.Coverage); err != nil {
		return enc, err
	}
	if enc.inclusion, err = json.Marshal(nonNil(r.Inclusion)); err != nil {
		return enc, err
	}
	if enc.exclusion, err = json.Marshal(nonNil(r.Exclusion)); err != nil {
		return enc, err
	}
	return enc, nil
}

func (e encodedRegion) decode(r *model.RegionResult) error {
	if err := json.Unmarshal(e.coverage, &r.Coverage); err != nil {
		return err
	}
	if err := json.Unmarshal(e.inclusion, &r.Inclusion); err != nil {
		return err
	}
	return json.Unmarshal(e.exclusion, &r.Exclusion)
}

func decodeRun(r *model.Run, params, summaries []byte) error {
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return err
	}
	if len(summaries) > 0 {
		return json.Unmarshal(summaries, &r.Summaries)
	}
	return nil
}

func nonNil(b []model.Bubble) []model.Bubble {
	if b == nil {
		return []model.Bubble{}
	}
	return b
}
