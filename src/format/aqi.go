package format

import (
	"errors"
	"fmt"
)

// ErrAQIOutOfRange is returned for an air-quality ordinal outside 1..5
var ErrAQIOutOfRange = errors.New("air quality index out of range")

// AQILevel is the fixed textual meaning of an AQI ordinal
type AQILevel struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

var aqiLevels = [...]AQILevel{
	{
		Level:   "Good",
		Message: "Air Quality is considered satisfactory, and air pollution poses little or no risk",
	},
	{
		Level:   "Fair",
		Message: "Air quality is acceptable; however, for some pollutants there may be a moderate health concern for a very small number of people who are unusually sensitive to air pollution.",
	},
	{
		Level:   "Moderate",
		Message: "Members of sensitive groups may experience health effects. The general public is not likely to be affected.",
	},
	{
		Level:   "Poor",
		Message: "Sensitivity to particulate matter may be a concern for the general public. This would be a good time for people with respiratory problems to limit outdoor exertion.",
	},
	{
		Level:   "Very Poor",
		Message: "Health Warning of emergency conditions. The Entire population is more likely to be affected",
	},
}

// AQIText looks up the level and message for an AQI ordinal in 1..5
func AQIText(index int) (AQILevel, error) {
	if index < 1 || index > len(aqiLevels) {
		return AQILevel{}, fmt.Errorf("%w: %d", ErrAQIOutOfRange, index)
	}
	return aqiLevels[index-1], nil
}
