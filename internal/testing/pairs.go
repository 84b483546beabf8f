package testing

import "github.com/google/uuid"

// DistinctPairs returns every ordered pair of different user ids
// e.g. [a, b, c] -> [[a,b], [a,c], [b,a], [b,c], [c,a], [c,b]]
func DistinctPairs(userIDs []uuid.UUID) [][2]uuid.UUID {
	pairs := make([][2]uuid.UUID, 0, len(userIDs)*(len(userIDs)-1))
	for i, a := range userIDs {
		for j, b := range userIDs {
			if i != j {
				pairs = append(pairs, [2]uuid.UUID{a, b})
			}
		}
	}

	return pairs
}
