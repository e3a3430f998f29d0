package domain

import (
	"encoding/json"
	"fmt"
)

// Season is a fixed three-month grouping of calendar months.
// The numeric order is the presentation order.
type Season int

const (
	Winter Season = iota
	Spring
	Summer
	Autumn
)

var seasonNames = [...]string{"Winter", "Spring", "Summer", "Autumn"}

// Seasons lists all seasons in presentation order
var Seasons = []Season{Winter, Spring, Summer, Autumn}

func (s Season) String() string {
	if s < Winter || s > Autumn {
		return fmt.Sprintf("Season(%d)", int(s))
	}
	return seasonNames[s]
}

// MarshalJSON encodes the season by name
func (s Season) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a season name
func (s *Season) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range seasonNames {
		if n == name {
			*s = Season(i)
			return nil
		}
	}
	return fmt.Errorf("unknown season %q", name)
}

// SeasonOf maps a calendar month (1-12) to its season.
// December belongs to the Winter of the year it is recorded in.
func SeasonOf(month int) Season {
	switch month {
	case 12, 1, 2:
		return Winter
	case 3, 4, 5:
		return Spring
	case 6, 7, 8:
		return Summer
	default:
		return Autumn
	}
}
