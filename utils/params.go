package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// OverlayParams contains the serialised version of the query
// parameters of an /overlay request.
type OverlayParams struct {
	BBox   []float64  `json:"bbox,omitempty"`
	Width  *int       `json:"width,omitempty"`
	Height *int       `json:"height,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
	Until  *time.Time `json:"until,omitempty"`
}

// OverlayRegexpMap maps query parameters to validation regular
// expressions. These do not catch every malformed value; error
// free JSON deserialisation into the typed struct validates the
// rest.
var OverlayRegexpMap = map[string]string{
	"bbox":   `^[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?(,[-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?){3}$`,
	"width":  `^[0-9]+$`,
	"height": `^[0-9]+$`,
	"time":   `^\d{4}-(?:1[0-2]|0[1-9])-(?:3[01]|0[1-9]|[12][0-9])T[0-2]\d:[0-5]\d:[0-5]\d\.\d+Z$`,
}

func CompileOverlayRegexMap() map[string]*regexp.Regexp {
	REMap := make(map[string]*regexp.Regexp)
	for key, re := range OverlayRegexpMap {
		REMap[key] = regexp.MustCompile(re)
	}
	return REMap
}

// OverlayParamsChecker checks and marshals the query parameters
// of an /overlay request into an OverlayParams struct.
func OverlayParamsChecker(params map[string][]string, compREMap map[string]*regexp.Regexp) (OverlayParams, error) {
	jsonFields := []string{}

	if bbox, bboxOK := params["bbox"]; bboxOK {
		if !compREMap["bbox"].MatchString(bbox[0]) {
			return OverlayParams{}, fmt.Errorf("invalid bbox parameter: %s", bbox[0])
		}
		jsonFields = append(jsonFields, fmt.Sprintf(`"bbox":[%s]`, bbox[0]))
	}

	if width, widthOK := params["width"]; widthOK {
		if !compREMap["width"].MatchString(width[0]) {
			return OverlayParams{}, fmt.Errorf("invalid width parameter: %s", width[0])
		}
		jsonFields = append(jsonFields, fmt.Sprintf(`"width":%s`, width[0]))
	}

	if height, heightOK := params["height"]; heightOK {
		if !compREMap["height"].MatchString(height[0]) {
			return OverlayParams{}, fmt.Errorf("invalid height parameter: %s", height[0])
		}
		jsonFields = append(jsonFields, fmt.Sprintf(`"height":%s`, height[0]))
	}

	for _, key := range []string{"time", "until"} {
		if val, ok := params[key]; ok {
			if !compREMap["time"].MatchString(val[0]) {
				return OverlayParams{}, fmt.Errorf("invalid %s parameter: %s", key, val[0])
			}
			jsonFields = append(jsonFields, fmt.Sprintf(`"%s":"%s"`, key, val[0]))
		}
	}

	jsonParams := fmt.Sprintf("{%s}", strings.Join(jsonFields, ","))
	var overlayParams OverlayParams
	err := json.Unmarshal([]byte(jsonParams), &overlayParams)
	return overlayParams, err
}
