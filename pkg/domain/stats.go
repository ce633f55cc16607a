package domain

// TrainingStats aggregates learning progress. It is reset together with the Q-table.
type TrainingStats struct {
	TotalEpisodes      int     `json:"total_episodes"`
	SuccessfulEpisodes int     `json:"successful_episodes"`
	AverageSteps       float64 `json:"average_steps"`
	// BestSteps is the shortest solved episode. Zero means no episode was solved yet.
	BestSteps int `json:"best_steps"`
}

// Record folds one finished episode into the statistics.
func (s *TrainingStats) Record(steps int, solved bool) {
	s.TotalEpisodes++
	if solved {
		s.SuccessfulEpisodes++
		if s.BestSteps == 0 || steps < s.BestSteps {
			s.BestSteps = steps
		}
	}
	s.AverageSteps += (float64(steps) - s.AverageSteps) / float64(s.TotalEpisodes)
}

// SuccessRate returns the fraction of solved episodes in [0,1].
func (s TrainingStats) SuccessRate() float64 {
	if s.TotalEpisodes == 0 {
		return 0
	}
	return float64(s.SuccessfulEpisodes) / float64(s.TotalEpisodes)
}

// Trajectory is the result of replaying a policy from the start state.
type Trajectory struct {
	States  []StateKey `json:"states"`
	Actions []Action   `json:"actions"`
	Steps   int        `json:"steps"`
	Solved  bool       `json:"solved"`
}
