package game

import "time"

// Settings are the per-chat rules a game is created with.
type Settings struct {
	FirstNightDuration time.Duration `json:"first_night_duration"`
	NightDuration      time.Duration `json:"night_duration"`
	DayDuration        time.Duration `json:"day_duration"`
	VotingDuration     time.Duration `json:"voting_duration"`
	MinPlayers         int           `json:"min_players"`
	TestMinPlayers     int           `json:"test_min_players"`
	MaxPlayers         int           `json:"max_players"`
	InitialSupplies    int           `json:"initial_supplies"`
	DailyForage        int           `json:"daily_forage"`
}

func DefaultSettings() Settings {
	return Settings{
		FirstNightDuration: 60 * time.Second,
		NightDuration:      60 * time.Second,
		DayDuration:        300 * time.Second,
		VotingDuration:     120 * time.Second,
		MinPlayers:         6,
		TestMinPlayers:     3,
		MaxPlayers:         12,
		InitialSupplies:    2,
		DailyForage:        1,
	}
}

// withDefaults fills any unset field from DefaultSettings.
func (s Settings) withDefaults() Settings {
	defaults := DefaultSettings()
	if s.FirstNightDuration <= 0 {
		s.FirstNightDuration = defaults.FirstNightDuration
	}
	if s.NightDuration <= 0 {
		s.NightDuration = defaults.NightDuration
	}
	if s.DayDuration <= 0 {
		s.DayDuration = defaults.DayDuration
	}
	if s.VotingDuration <= 0 {
		s.VotingDuration = defaults.VotingDuration
	}
	if s.MinPlayers <= 0 {
		s.MinPlayers = defaults.MinPlayers
	} else if s.MinPlayers < MinRosterSize {
		s.MinPlayers = MinRosterSize
	}
	if s.TestMinPlayers <= 0 {
		s.TestMinPlayers = defaults.TestMinPlayers
	} else if s.TestMinPlayers < MinRosterSize {
		s.TestMinPlayers = MinRosterSize
	}
	if s.MaxPlayers <= 0 || s.MaxPlayers > MaxRosterSize {
		s.MaxPlayers = defaults.MaxPlayers
	}
	if s.InitialSupplies <= 0 {
		s.InitialSupplies = defaults.InitialSupplies
	}
	if s.DailyForage < 0 {
		s.DailyForage = 0
	}
	return s
}
