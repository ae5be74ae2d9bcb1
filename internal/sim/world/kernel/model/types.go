package model

type Vec3i struct{ X, Y, Z int }

func Manhattan(a, b Vec3i) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y) + absInt(a.Z-b.Z)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ItemCount is an (item kind, amount) pair, the unit of requirement lists.
type ItemCount struct {
	Kind  string
	Count int
}

func SumByKind(items []ItemCount) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		if it.Kind == "" || it.Count <= 0 {
			continue
		}
		out[it.Kind] += it.Count
	}
	return out
}
