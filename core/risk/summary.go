package risk

import "github.com/trezcool/mentorship/core"

// Summary tallies assessments per zone.
type Summary struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
	Total  int `json:"total"`
}

func (s *Summary) Add(zone Zone) {
	switch zone {
	case ZoneGreen:
		s.Green++
	case ZoneYellow:
		s.Yellow++
	case ZoneRed:
		s.Red++
	default:
		return
	}
	s.Total++
}

func (s Summary) Count(zone Zone) int {
	switch zone {
	case ZoneGreen:
		return s.Green
	case ZoneYellow:
		return s.Yellow
	case ZoneRed:
		return s.Red
	}
	return 0
}

// Percent returns the rounded share of zone in the total, 0 for an empty summary.
func (s Summary) Percent(zone Zone) int {
	if s.Total == 0 {
		return 0
	}
	return core.Round(float64(s.Count(zone)) / float64(s.Total) * 100)
}

// NeedsAttention counts the students outside the green zone.
func (s Summary) NeedsAttention() int {
	return s.Yellow + s.Red
}
