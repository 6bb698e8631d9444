package marketplace

// MatchSkill finds the skill a hire refers to. An exact id match wins over
// an exact name match; a skill whose name equals another skill's id never
// shadows that skill.
func MatchSkill(skills []Skill, ref string) (Skill, bool) {
	if ref == "" {
		return Skill{}, false
	}
	for _, s := range skills {
		if s.ID == ref {
			return s.clone(), true
		}
	}
	for _, s := range skills {
		if s.Name == ref {
			return s.clone(), true
		}
	}
	return Skill{}, false
}

func skillIDs(skills []Skill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = s.ID
	}
	return out
}
