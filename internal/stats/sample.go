package stats

import "math/rand/v2"

// Sample returns the reference snapshot used by the mock upstream and in tests.
func Sample() *Snapshot {
	return &Snapshot{
		Total: Totals{AllUsers: 35, AllMale: 17, AllFemale: 18},
		Directions: map[string]Category{
			KeyRoboFutbol: {Name: "Robo Futbol", Total: 9, Male: 5, Female: 4},
			KeyRoboSumo:   {Name: "Robo sumo", Total: 2, Male: 1, Female: 1},
			KeyInventions: {Name: "Foydali Ixtirolar", Total: 7, Male: 3, Female: 4},
			KeyAI:         {Name: "Ai", Total: 17, Male: 8, Female: 9},
			KeyContest:    {Name: "Contest", Total: 0, Male: 0, Female: 0},
		},
	}
}

// Random returns a plausible snapshot with random counts. Category counts are
// drawn independently, so they may disagree with their totals just like a
// misbehaving upstream would.
func Random(r *rand.Rand) *Snapshot {
	between := func(min, max int) int {
		return min + r.IntN(max-min+1)
	}

	users := between(30, 50)
	male := between(10, users-10)

	return &Snapshot{
		Total: Totals{AllUsers: users, AllMale: male, AllFemale: users - male},
		Directions: map[string]Category{
			KeyRoboFutbol: {Name: "Robo Futbol", Total: between(5, 12), Male: between(2, 8), Female: between(2, 8)},
			KeyRoboSumo:   {Name: "Robo sumo", Total: between(1, 5), Male: between(0, 3), Female: between(0, 3)},
			KeyInventions: {Name: "Foydali Ixtirolar", Total: between(3, 10), Male: between(1, 6), Female: between(1, 6)},
			KeyAI:         {Name: "Ai", Total: between(10, 20), Male: between(5, 12), Female: between(5, 12)},
			KeyContest:    {Name: "Contest", Total: between(0, 5), Male: between(0, 3), Female: between(0, 3)},
		},
	}
}
