package rps

import "testing"

func TestJudge(t *testing.T) {
	cases := []struct {
		robot, player Move
		want          Outcome
	}{
		{Rock, Rock, Draw},
		{Rock, Paper, PlayerWins},
		{Rock, Scissors, RobotWins},
		{Paper, Rock, RobotWins},
		{Paper, Paper, Draw},
		{Paper, Scissors, PlayerWins},
		{Scissors, Rock, PlayerWins},
		{Scissors, Paper, RobotWins},
		{Scissors, Scissors, Draw},
	}
	for _, tc := range cases {
		if got := judge(tc.robot, tc.player); got != tc.want {
			t.Errorf("judge(%v, %v) = %v, want %v", tc.robot, tc.player, got, tc.want)
		}
	}
}

func TestMoveFromFingers(t *testing.T) {
	cases := []struct {
		fingers int
		want    Move
		ok      bool
	}{
		{0, Rock, true},
		{1, Rock, true},
		{2, Scissors, true},
		{3, Scissors, true},
		{4, Paper, true},
		{5, Paper, true},
		{6, 0, false},
		{-1, 0, false},
	}
	for _, tc := range cases {
		got, ok := moveFromFingers(tc.fingers)
		if ok != tc.ok {
			t.Errorf("moveFromFingers(%d) ok = %v, want %v", tc.fingers, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("moveFromFingers(%d) = %v, want %v", tc.fingers, got, tc.want)
		}
	}
}

func TestMajority(t *testing.T) {
	cases := []struct {
		name  string
		votes [3]int
		total int
		want  Move
		ok    bool
	}{
		{"rock leads", [3]int{3, 1, 0}, 4, Rock, true},
		{"paper leads", [3]int{1, 3, 0}, 4, Paper, true},
		{"scissors only", [3]int{0, 0, 2}, 2, Scissors, true},
		{"tie goes to rock", [3]int{2, 2, 0}, 4, Rock, true},
		{"tie goes to paper", [3]int{0, 2, 2}, 4, Paper, true},
		{"no samples", [3]int{}, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := majority(tc.votes, tc.total)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("majority = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	good := DefaultConfig()
	if err := good.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capture window", func(c *Config) { c.CaptureWindow = 0 }},
		{"zero sample interval", func(c *Config) { c.SampleEvery = 0 }},
		{"sample longer than window", func(c *Config) { c.SampleEvery = c.CaptureWindow * 2 }},
		{"negative beeps", func(c *Config) { c.CountdownBeeps = -1 }},
		{"zero say timeout", func(c *Config) { c.SayTimeout = 0 }},
		{"zero farewell timeout", func(c *Config) { c.FarewellTimeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
