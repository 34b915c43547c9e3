package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// RoleSet builds the exact role multiset for n players from the quota
// table. Roles are emitted in a stable order.
func (r Rules) RoleSet(n int) ([]Role, error) {
	if n < r.MinPlayers {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPlayers, n, r.MinPlayers)
	}
	quota, ok := r.Quotas[n]
	if !ok {
		return nil, fmt.Errorf("%w: no quota for %d players", ErrRoleTable, n)
	}

	roles := make([]Role, 0, n)
	keys := make([]Role, 0, len(quota))
	for role := range quota {
		keys = append(keys, role)
	}
	slices.Sort(keys)
	for _, role := range keys {
		for range quota[role] {
			roles = append(roles, role)
		}
	}
	if len(roles) != n {
		return nil, fmt.Errorf("%w: quota for %d players yields %d roles", ErrRoleTable, n, len(roles))
	}
	return roles, nil
}

// AssignRoles deals roles to every bound seat. Players and roles are
// shuffled independently before being paired, so seat order carries no
// information. Oxygen and one-shot flags start fresh.
func AssignRoles(s *Snapshot, rules Rules, rng *rand.Rand, now time.Time) error {
	players := s.Bound()
	roles, err := rules.RoleSet(len(players))
	if err != nil {
		return err
	}

	shuffle(rng, players)
	shuffle(rng, roles)

	for i, p := range players {
		p.Role = roles[i]
		p.Alive = true
		p.Oxygen = NewOxygen(rules.InitialOxygen, now)
		p.EmergencyUsed = false
		p.Stasis = false
		p.PoisonAt = time.Time{}
		p.PoisonedBy = 0
		p.Voted = false
		p.GhostLocation = ""
		p.HauntTarget = 0
		p.TaskContribution = 0
		p.Location = ""
		p.TargetLocation = ""
		p.LifeCode = ""
		p.PrevLifeCode = ""
		p.CodeVersion = 0
	}
	return nil
}

// RoleCounts tallies roles among bound seats.
func RoleCounts(s *Snapshot) map[Role]int {
	counts := make(map[Role]int)
	for _, p := range s.Bound() {
		if p.Role != "" {
			counts[p.Role]++
		}
	}
	return counts
}
