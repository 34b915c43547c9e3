package engine

// Evaluate decides whether the game is over. It has no side effects and
// returns nil while play continues.
func Evaluate(s *Snapshot, rules Rules) *Result {
	for _, rec := range s.VotingHistory {
		if rec.Executed == 0 {
			continue
		}
		if p := s.Player(rec.Executed); p != nil && p.Role == RoleDodo {
			return &Result{
				Camp:    CampNeutral,
				Role:    RoleDodo,
				Winners: []int{p.Seat},
				Reason:  "voted out",
			}
		}
	}

	alive := s.Alive()
	if len(alive) == 0 {
		return &Result{Camp: CampNone, Winners: []int{}, Reason: "no survivors"}
	}

	var geese, ducks int
	var armed []int
	for _, p := range alive {
		switch {
		case p.Role.Armed():
			armed = append(armed, p.Seat)
		case p.Camp() == CampGoose:
			geese++
		case p.Camp() == CampDuck:
			ducks++
		}
	}
	blocked := rules.NeutralBlocksTaskWin && len(armed) > 0

	if len(armed) > 0 && len(alive) <= rules.ArmedNeutralWinAlive {
		return &Result{
			Camp:    CampNeutral,
			Role:    s.Player(armed[0]).Role,
			Winners: armed,
			Reason:  "last one standing",
		}
	}

	if s.Tasks.Progress >= 100 && !blocked {
		return campWin(s, CampGoose, "tasks complete")
	}

	if geese == 0 && ducks == 0 && len(armed) == 0 {
		return &Result{Camp: CampNone, Winners: []int{}, Reason: "no camp survived"}
	}
	if ducks == 0 && len(armed) == 0 {
		return campWin(s, CampGoose, "ducks eliminated")
	}
	if geese == 0 && len(armed) == 0 {
		return campWin(s, CampDuck, "geese eliminated")
	}

	if ducks > 0 && ducks >= len(alive)-ducks && !blocked {
		return campWin(s, CampDuck, "ducks outnumber the rest")
	}

	return nil
}

func campWin(s *Snapshot, camp Camp, reason string) *Result {
	winners := []int{}
	for _, p := range s.Bound() {
		if p.Camp() == camp {
			winners = append(winners, p.Seat)
		}
	}
	return &Result{Camp: camp, Winners: winners, Reason: reason}
}
